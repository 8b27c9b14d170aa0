package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Red    = "\033[31m"
	Yellow = "\033[33m"
)

// Cache-related log prefixes
const (
	LogCacheInit    = Blue + "[Cache:Init]" + Reset
	LogCache        = Blue + "[Cache]" + Reset
	LogCacheBackup  = Blue + "[Cache:Backup]" + Reset
	LogCacheClear   = Blue + "[Cache:Clear]" + Reset
	LogCacheSweep   = Blue + "[Cache:Sweep]" + Reset
	LogCacheSearch  = Green + "[Cache:Search]" + Reset
	LogCacheCredits = Green + "[Cache:Credits]" + Reset
)

// Rate limiting log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogRateGate  = Purple + "[RateGate]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}

// Server/Init log prefixes
const (
	LogServer    = Green + "[Server]" + Reset
	LogConfig    = Cyan + "[Config]" + Reset
	LogStats     = Blue + "[Stats]" + Reset
	LogScheduler = Cyan + "[Scheduler]" + Reset
	LogNotifier  = Yellow + "[Notifier]" + Reset
)

// Search pipeline log prefixes
const (
	LogRequest  = Purple + "[Request]" + Reset
	LogSearch   = Blue + "[Search]" + Reset
	LogUpstream = Cyan + "[Upstream]" + Reset
	LogHTTP     = Cyan + "[HTTP]" + Reset
	LogRank     = Green + "[Rank]" + Reset
	LogCredits  = Green + "[Credits]" + Reset
	LogFallback = Cyan + "[Fallback]" + Reset
	LogWarning  = Red + "[Warning]" + Reset
)
