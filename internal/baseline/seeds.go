package baseline

// NormalLogs is the fixed set of log lines that defines "normal" behaviour.
// Point IDs are assigned from the slice index.
var NormalLogs = []string{
	"INFO: User 'admin' logged in successfully from IP 192.168.1.10",
	"INFO: Service 'database-connector' started successfully on port 5432",
	"DEBUG: Cache cleared for user session 'user123'",
	"INFO: GET /api/v1/users request processed in 25ms",
	"INFO: Scheduled backup job 'daily-backup' completed successfully.",
}
