package accounts

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// LinkPayload is the base64 encoded half of a confirmation or reset
// link. The email inside must match the email claimed by the token
// that rides along as a query parameter.
type LinkPayload struct {
	Email  string `json:"email"`
	RoleID string `json:"role_id"`
}

// EncodeLinkPayload serializes the payload the way confirmation links
// carry it: JSON wrapped in URL safe base64.
func EncodeLinkPayload(p LinkPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode link payload")
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

// DecodeLinkPayload reverses EncodeLinkPayload. Standard base64 is
// accepted too since older links used it.
func DecodeLinkPayload(encoded string) (LinkPayload, error) {
	var p LinkPayload

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return p, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode link payload").
			WithCode(goerrors.CodeBadRequest)
	}

	if err := json.Unmarshal(raw, &p); err != nil {
		return p, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to parse link payload").
			WithCode(goerrors.CodeBadRequest)
	}

	return p, nil
}

// LinkBuilder assembles confirmation and reset links of the form
// {base_url}{path}{base64(payload)}?token={signed_token}.
type LinkBuilder struct {
	baseURL string
	path    string
}

// NewLinkBuilder creates a LinkBuilder. The path should include both
// leading and trailing slashes, e.g. "/users/signup/confirmation/".
func NewLinkBuilder(baseURL, path string) *LinkBuilder {
	return &LinkBuilder{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		path:    path,
	}
}

// Build returns the full link for the given payload and signed token.
func (lb *LinkBuilder) Build(payload LinkPayload, token string) (string, error) {
	encoded, err := EncodeLinkPayload(payload)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%s?token=%s", lb.baseURL, lb.path, encoded, token), nil
}

// MailTemplates renders the notification bodies for lifecycle events.
// AppName and From feed every template.
type MailTemplates struct {
	AppName string
	From    string
}

// SignupConfirmation is the mail sent after signup with the account
// confirmation link.
func (t MailTemplates) SignupConfirmation(to, link string) MailMessage {
	html := fmt.Sprintf(`<br/>Hi, `+
		`<br/><br/>You applied for a new account at %[1]s. `+
		`<br/><br/><b><a href="%[2]s">Please click here to confirm your account.</a></b> `+
		`<br/><br/>This will expire after two hours. `+
		`<br/><br/>Kind regards, `+
		`<br/>The %[1]s team`, t.AppName, link)

	return MailMessage{
		From:    t.From,
		To:      to,
		Subject: fmt.Sprintf("%s - New Account", t.AppName),
		HTML:    html,
	}
}

// PasswordReset is the mail sent after a forgot password request with
// the reset link.
func (t MailTemplates) PasswordReset(to, link string) MailMessage {
	html := fmt.Sprintf(`<br/>Hi %[2]s, `+
		`<br/><br/>Someone requested to a password reset for your account at %[1]s. `+
		`<br/><br/>If this was you please click the link below to reset your password.`+
		`<br/><br/><b><a href="%[3]s">Please click here to reset your password.</a></b> `+
		`<br/><br/>This will expire after two hours. `+
		`<br/><br/>Kind regards, `+
		`<br/>The %[1]s team`, t.AppName, to, link)

	return MailMessage{
		From:    t.From,
		To:      to,
		Subject: fmt.Sprintf("%s - Reset Password", t.AppName),
		HTML:    html,
	}
}

// PasswordResetConfirmation is the mail sent after a password was
// changed through the reset flow.
func (t MailTemplates) PasswordResetConfirmation(to string) MailMessage {
	html := fmt.Sprintf(`<br/>Hi %[2]s, `+
		`<br/><br/>The password for your account at %[1]s was changed. `+
		`<br/><br/>If this was not you please contact support immediately. `+
		`<br/><br/>Kind regards, `+
		`<br/>The %[1]s team`, t.AppName, to)

	return MailMessage{
		From:    t.From,
		To:      to,
		Subject: fmt.Sprintf("%s - Password Changed", t.AppName),
		HTML:    html,
	}
}
