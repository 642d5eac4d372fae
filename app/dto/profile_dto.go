package dto

// DashboardStatsDTO summarises the owner's codes
type DashboardStatsDTO struct {
	TotalQRCodes  int64 `json:"total_qr_codes"`
	ActiveQRCodes int64 `json:"active_qr_codes"`
	TotalScans    int64 `json:"total_scans"`
	Credits       int   `json:"credits"`
}

// ProfileResponse is the dashboard header payload
type ProfileResponse struct {
	Customer AuthCustomerDTO   `json:"customer"`
	Stats    DashboardStatsDTO `json:"stats"`
}
