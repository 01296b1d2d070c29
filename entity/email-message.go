package entity

// EmailMessage is the payload accepted by the external email function.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
