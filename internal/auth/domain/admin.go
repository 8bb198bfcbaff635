package domain

// AdminID is the sender id stamped on messages written from the dashboard.
const AdminID = "admin"

type Admin struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
