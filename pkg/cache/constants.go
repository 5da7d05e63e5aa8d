package cache

// DefaultShardDepth is the number of single-character directory levels used to
// distribute entries across subdirectories when no depth is configured.
const DefaultShardDepth = 5
