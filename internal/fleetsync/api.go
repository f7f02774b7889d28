package fleetsync

import "encoding/json"

// ApiResponse models the top-level structure of the upstream fleet API's response.
type ApiResponse struct {
	Code int `json:"code"`
	Data struct {
		Page     int       `json:"page"`
		PageSize int       `json:"pageSize"`
		Total    int       `json:"total"`
		Items    []ApiUnit `json:"items"`
	} `json:"data"`
}

// ApiUnit is one unit snapshot from the upstream feed. Capabilities and crew ids
// arrive in whatever shape the roster system stored them.
type ApiUnit struct {
	ID                   string          `json:"id"`
	OrganizationID       string          `json:"organizationId"`
	DisplayID            string          `json:"displayId"`
	Status               string          `json:"status"`
	Capabilities         json.RawMessage `json:"capabilities"`
	Latitude             *float64        `json:"latitude"`
	Longitude            *float64        `json:"longitude"`
	LocationTime         *string         `json:"locationTime"`
	FatigueLevel         string          `json:"fatigueLevel"`
	OnTimeArrivalPct     *float64        `json:"onTimeArrivalPct"`
	AvgResponseMinutes   *float64        `json:"avgResponseMinutes"`
	ComplianceAuditScore *float64        `json:"complianceAuditScore"`
	CrewIDs              json.RawMessage `json:"crewIds"`
}
