package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	APIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	ServerConfig struct {
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		JWTSecret       string // optional: verify incoming tokens with HS256 when set
	}

	DashboardConfig struct {
		PageSize int
	}

	StorageConfig struct {
		Engine string // memory | sqlite | postgres
		DSN    string
	}

	EmailConfig struct {
		SendgridApiKey   string
		DefaultFromEmail string
	}

	Config struct {
		Env             string
		Debug           bool
		TestMode        bool
		AppName         string
		Build           string
		FrontendBaseURL string
		RollbarToken    string
		WorkDir         string

		API       APIConfig
		Server    ServerConfig
		Dashboard DashboardConfig
		Storage   StorageConfig
		Email     EmailConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.AppName, Address: c.Email.DefaultFromEmail}
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file
// and the environment (prefixed with the value of ENV).
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "SchoolHealth")
	v.SetDefault("build", "develop")
	v.SetDefault("frontendBaseURL", "http://localhost:5173")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("api.baseURL", "http://localhost:3000/api")
	v.SetDefault("api.timeout", 60*time.Second)
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtSecret", "")
	v.SetDefault("dashboard.pageSize", 10)
	v.SetDefault("storage.engine", "sqlite")
	v.SetDefault("storage.dsn", "file:schoolhealth.db?_pragma=busy_timeout(5000)")
	v.SetDefault("email.sendgridApiKey", "")
	v.SetDefault("email.defaultFromEmail", "noreply@localhost")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:             env,
		Debug:           v.GetBool("debug"),
		TestMode:        v.GetBool("testMode"),
		AppName:         v.GetString("appName"),
		Build:           v.GetString("build"),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		RollbarToken:    v.GetString("rollbarToken"),
		WorkDir:         wd,
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.baseURL"), "/"),
			Timeout: v.GetDuration("api.timeout"),
		},
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugHost:       v.GetString("server.debugHost"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			JWTSecret:       v.GetString("server.jwtSecret"),
		},
		Dashboard: DashboardConfig{
			PageSize: v.GetInt("dashboard.pageSize"),
		},
		Storage: StorageConfig{
			Engine: strings.ToLower(v.GetString("storage.engine")),
			DSN:    v.GetString("storage.dsn"),
		},
		Email: EmailConfig{
			SendgridApiKey:   v.GetString("email.sendgridApiKey"),
			DefaultFromEmail: v.GetString("email.defaultFromEmail"),
		},
	}
}
