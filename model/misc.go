package model

// BaseData struct to pass value to the base template
type BaseData struct {
	Active      string
	CurrentUser string
	BasePath    string
}

// Stats summarises the stored records for the dashboard overview
type Stats struct {
	Users        int
	Projects     int
	Contacts     int
	Applications map[ApplicationStatus]int
}

// TotalApplications across all statuses
func (s Stats) TotalApplications() int {
	total := 0
	for _, n := range s.Applications {
		total += n
	}
	return total
}
