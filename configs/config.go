package config

import (
	"log"
	"os"

	"github.com/jinzhu/configor"
	"github.com/joho/godotenv"
)

type ServerConfig struct {
	Port        string   `default:":8080" env:"PORT"`
	AppName     string   `default:"Skillazon"`
	CorsOrigins []string `yaml:"cors_origins"`
	TimeZone    string   `default:"UTC" yaml:"time_zone"`
}

type DatabaseConfig struct {
	URL string `env:"DATABASE_URL"`
	// Driver is "postgres" or "memory".
	Driver   string `default:"postgres" env:"STORE_DRIVER"`
	Fallback bool   `default:"true" env:"STORE_FALLBACK"`
}

type AuthConfig struct {
	JWTSecret string `required:"true" env:"JWT_SECRET" yaml:"jwt_secret"`
	// JWTRefreshSecret signs refresh tokens; empty reuses JWTSecret.
	JWTRefreshSecret string `env:"JWT_REFRESH_SECRET" yaml:"jwt_refresh_secret"`
	MaxLoginAttempts int    `default:"5" env:"MAX_LOGIN_ATTEMPTS" yaml:"max_login_attempts"`
	LockoutHours     int    `default:"1" env:"LOGIN_LOCKOUT_HOURS" yaml:"lockout_hours"`
}

type AdminConfig struct {
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
	Username string `default:"admin" env:"ADMIN_USERNAME"`
}

type EmailConfig struct {
	BrevoAPIKey string `env:"BREVO_API_KEY" yaml:"brevo_api_key"`
	SenderEmail string `env:"EMAIL_SENDER" yaml:"sender_email"`
	SenderName  string `default:"Skillazon" env:"EMAIL_SENDER_NAME" yaml:"sender_name"`
}

type JobsConfig struct {
	ReminderSpec string `default:"*/5 * * * *" yaml:"reminder_spec"`
	ExpirySpec   string `default:"*/5 * * * *" yaml:"expiry_spec"`
	// ReminderLeadMinutes is how far ahead a confirmed session gets its reminder.
	ReminderLeadMinutes int `default:"65" yaml:"reminder_lead_minutes"`
}

type RedisConfig struct {
	URL     string `env:"REDIS_URL"`
	Channel string `default:"skillazon:chat"`
}

type UploadConfig struct {
	CloudinaryURL string `env:"CLOUDINARY_URL" yaml:"cloudinary_url"`
	Folder        string `default:"skillazon_avatars"`
}

type AppConfig struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Admin    AdminConfig
	Email    EmailConfig
	Jobs     JobsConfig
	Redis    RedisConfig
	Upload   UploadConfig
}

// Load reads .env into the process environment, then config.yml, then
// SKILLAZON_* and the explicit env overrides declared on the fields.
func Load(files ...string) (*AppConfig, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}
	if len(files) == 0 {
		files = existing("config.yml")
	}

	var cfg AppConfig
	if err := configor.New(&configor.Config{ENVPrefix: "SKILLAZON", Silent: true}).Load(&cfg, files...); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func existing(paths ...string) []string {
	var found []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			found = append(found, p)
		}
	}
	return found
}
