package index

// DefaultAliases is the built-in synonym table. User overrides from the
// project config are merged over these per key.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"auth":     {"authentication", "authorization", "login"},
		"db":       {"database", "sql"},
		"config":   {"configuration", "settings"},
		"env":      {"environment"},
		"dir":      {"directory", "folder"},
		"repo":     {"repository"},
		"deps":     {"dependencies", "packages"},
		"dep":      {"dependency"},
		"k8s":      {"kubernetes"},
		"js":       {"javascript"},
		"ts":       {"typescript"},
		"test":     {"tests", "testing", "spec"},
		"err":      {"error", "errors"},
		"perf":     {"performance", "latency"},
		"ci":       {"pipeline", "workflow"},
		"api":      {"endpoint", "route"},
		"frontend": {"ui", "client"},
		"backend":  {"server", "service"},
	}
}
