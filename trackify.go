package trackify

var (
	VERSION = "dev"
	COMMIT  = "unknown"
)
