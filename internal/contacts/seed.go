package contacts

import "time"

// DemoContacts is the sample book the dashboard ships with.
func DemoContacts() []NewContact {
	lastWeek := time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)
	return []NewContact{
		{Name: "John Smith", Email: "john.smith@example.com", Phone: "+1 (555) 123-4567", AssignedAgent: "1", Campaign: "1", Tags: []string{"Hot", "Enterprise"}, Source: SourceManual, LastContactedAt: &lastWeek, Notes: "Interested in premium plan"},
		{Name: "Sarah Johnson", Email: "sarah.j@techcorp.com", Phone: "+1 (555) 234-5678", AssignedAgent: "2", Campaign: "2", Tags: []string{"VIP", "Follow-up"}, Source: SourceCSV},
		{Name: "Michael Brown", Email: "m.brown@startup.io", Phone: "+1 (555) 345-6789", AssignedAgent: UnassignedAgent, Tags: []string{"Cold"}, Source: SourceAPI},
		{Name: "Emily Davis", Email: "emily.davis@retail.com", Phone: "+1 (555) 456-7890", AssignedAgent: "1", Campaign: "2", Tags: []string{"Hot", "VIP"}, Source: SourceManual},
		{Name: "David Wilson", Email: "dwilson@finance.net", Phone: "+1 (555) 567-8901", Tags: []string{"Prospect"}, Source: SourceCSV, Notes: "Requested callback next quarter"},
	}
}

// SeedDemo loads DemoContacts into an empty store. It does nothing when the
// store already holds contacts.
func SeedDemo(s *Store) int {
	if s.Len() > 0 {
		return 0
	}
	return len(s.BulkAdd(DemoContacts()))
}
