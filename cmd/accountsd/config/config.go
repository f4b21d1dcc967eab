package config

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-accounts"
)

// BaseConfig is the root configuration container for the accounts daemon.
// go-config hydrates it from config/app.json plus environment overrides.
type BaseConfig struct {
	App         App         `json:"app"`
	Server      Server      `json:"server"`
	Auth        Auth        `json:"auth"`
	Persistence Persistence `json:"persistence"`
}

type App struct {
	Name string `json:"name"`
}

type Server struct {
	Addr string `json:"addr"`
}

type Auth struct {
	SigningKey                string   `json:"signing_key"`
	Issuer                    string   `json:"issuer"`
	Audience                  []string `json:"audience"`
	UserTokenExpiration       string   `json:"user_token_expiration"`
	RegistrationExpiration    string   `json:"registration_token_expiration"`
	ResetPasswordExpiration   string   `json:"reset_password_token_expiration"`
	BcryptCost                int      `json:"bcrypt_cost"`
	MaintenanceMode           bool     `json:"maintenance_mode"`
	APIBaseURL                string   `json:"api_base_url"`
	ConfirmationPath          string   `json:"confirmation_path"`
	MailFrom                  string   `json:"mail_from"`
	DeliveryMode              string   `json:"delivery_mode"`
}

type Persistence struct {
	Debug                 bool   `json:"debug"`
	Driver                string `json:"driver"`
	Server                string `json:"server"`
	Database              string `json:"database"`
	DSN                   string `json:"dsn"`
	PingTimeoutExpression string `json:"ping_timeout"`
}

func (c BaseConfig) Validate() error {
	return validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.SigningKey, validation.Required),
	)
}

func (c *BaseConfig) GetApp() App { return c.App }
func (c *BaseConfig) GetServer() Server { return c.Server }
func (c *BaseConfig) GetAuth() *Auth { return &c.Auth }
func (c *BaseConfig) GetPersistence() Persistence { return c.Persistence }

func (a App) GetName() string {
	if a.Name == "" {
		return "accounts"
	}
	return a.Name
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8573"
	}
	return s.Addr
}

var _ accounts.Config = (*Auth)(nil)

func (a *Auth) GetSigningKey() string { return a.SigningKey }
func (a *Auth) GetIssuer() string { return a.Issuer }
func (a *Auth) GetAudience() []string { return a.Audience }

func (a *Auth) GetUserTokenExpiration() time.Duration {
	return durationOr(a.UserTokenExpiration, 24*time.Hour)
}

func (a *Auth) GetRegistrationTokenExpiration() time.Duration {
	return durationOr(a.RegistrationExpiration, 2*time.Hour)
}

func (a *Auth) GetResetTokenExpiration() time.Duration {
	return durationOr(a.ResetPasswordExpiration, 2*time.Hour)
}

func (a *Auth) GetBcryptCost() int { return a.BcryptCost }
func (a *Auth) GetMaintenanceMode() bool { return a.MaintenanceMode }

func (a *Auth) GetAPIBaseURL() string {
	if a.APIBaseURL == "" {
		return "http://localhost:8573"
	}
	return a.APIBaseURL
}

func (a *Auth) GetConfirmationPath() string {
	if a.ConfirmationPath == "" {
		return "/users/confirmation/"
	}
	return a.ConfirmationPath
}

func (a *Auth) GetMailFrom() string {
	if a.MailFrom == "" {
		return "no-reply@localhost"
	}
	return a.MailFrom
}

func (a *Auth) GetDeliveryMode() string { return a.DeliveryMode }

func (p Persistence) GetDebug() bool { return p.Debug }
func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetServer() string { return p.Server }
func (p Persistence) GetDatabase() string { return p.Database }

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file::memory:?cache=shared"
	}
	return p.DSN
}

func (p Persistence) GetPingTimeout() time.Duration {
	return durationOr(p.PingTimeoutExpression, 5*time.Second)
}

func (p Persistence) GetOtelIdentifier() string { return "" }

func durationOr(expr string, def time.Duration) time.Duration {
	if expr == "" {
		return def
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		return def
	}
	return dur
}
