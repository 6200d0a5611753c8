package domain

// DashboardStats aggregates ticket figures for technicians.
//
// ByStatus and ByPriority only carry values present in the data; callers
// default missing keys to zero.
type DashboardStats struct {
	Total                  int                    `json:"total"`
	ByStatus               map[TicketStatus]int   `json:"by_status"`
	ByPriority             map[TicketPriority]int `json:"by_priority"`
	AverageResolutionHours *float64               `json:"average_resolution_hours"`
	UrgentUnresolved       int                    `json:"urgent_unresolved"`
	Unassigned             int                    `json:"unassigned"`
	Technicians            int                    `json:"technicians"`
	Users                  int                    `json:"users"`
}
