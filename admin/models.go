package admin

// Stats is the platform overview shown on the admin dashboard.
type Stats struct {
	TotalUsers int64
	TotalJobs  int64
}
