package application

// Services bundles the entry points exposed by the RPC and HTTP transports.
type Services struct {
	Profile *ProfileService
	Ritual  *RitualService
	Oracle  *OracleService
}
