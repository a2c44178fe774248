package mailer

// Service delivers membership emails. Both sends are best-effort from the
// caller's point of view: a delivery failure never rolls back the state that
// triggered it.
type Service interface {
	SendConfirmationCode(toEmail, firstName, code string) error
	SendWelcome(toEmail, firstName string) error
}
