package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

// Conf holds the application configuration. It is loaded once at startup.
var Conf *Config

type Config struct {
	Debug    bool
	TestMode bool
	Env      string
	Build    string
	AppName  string

	SecretKey        []byte
	WorkDir          string
	FrontendBaseURL  string
	DefaultFromEmail mail.Address
	SendgridApiKey   string
	RollbarToken     string

	Server struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	Database struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	Redis struct {
		Host    string
		Port    int
		TokenDB int
	}

	TokenLength               int
	PasswordResetTokenTimeout time.Duration
	EmailConfirmTokenTimeout  time.Duration
	TwoFATokenTimeout         time.Duration

	MediaRoot string
}

func (conf *Config) IsProd() bool { return conf.Env == "PROD" }

func (conf *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", conf.Server.Host, conf.Server.Port)
}

func (conf *Config) DatabaseAddress() string {
	return fmt.Sprintf("%s:%d", conf.Database.Host, conf.Database.Port)
}

func (conf *Config) RedisAddress() string {
	return fmt.Sprintf("%s:%d", conf.Redis.Host, conf.Redis.Port)
}

// Validate ensures that required settings are provided before the app starts serving.
func (conf *Config) Validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(string(conf.SecretKey), "secretKey"),
		vala.StringNotEmpty(conf.AppName, "appName"),
		vala.StringNotEmpty(conf.Database.Name, "database.name"),
		vala.GreaterThan(conf.TokenLength, 0, "tokenLength"),
	).Check()
}

func init() {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Desk2")
	v.SetDefault("secretKey", "+x8d=2z&u0xh2(h!x)#*c2(#yg4h^$cegm2emy9-wer)enb$")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@desk2.com")
	v.SetDefault("jwtExpirationDelta", 10*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverPort", 8000)
	v.SetDefault("serverDebugHost", "localhost:4000")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "desk2")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("redisHost", "localhost")
	v.SetDefault("redisPort", 6379)
	v.SetDefault("redisTokenDB", 0)
	v.SetDefault("tokenLength", 7)
	v.SetDefault("passwordResetTokenTimeout", 5*time.Minute)
	v.SetDefault("emailConfirmTokenTimeout", 5*time.Minute)
	v.SetDefault("twoFATokenTimeout", 5*time.Minute)
	v.SetDefault("mediaRoot", "media")

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.SetEnvPrefix(env)
	v.AutomaticEnv()

	Conf = &Config{
		Debug:           v.GetBool("debug"),
		TestMode:        env == "TEST",
		Env:             env,
		Build:           v.GetString("build"),
		AppName:         v.GetString("appName"),
		SecretKey:       []byte(v.GetString("secretKey")),
		WorkDir:         Getwd(),
		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName") + " Team",
			Address: v.GetString("defaultFromEmail"),
		},
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		TokenLength:               v.GetInt("tokenLength"),
		PasswordResetTokenTimeout: v.GetDuration("passwordResetTokenTimeout"),
		EmailConfirmTokenTimeout:  v.GetDuration("emailConfirmTokenTimeout"),
		TwoFATokenTimeout:         v.GetDuration("twoFATokenTimeout"),
		MediaRoot:                 v.GetString("mediaRoot"),
	}
	Conf.Server.Host = v.GetString("serverHost")
	Conf.Server.Port = v.GetInt("serverPort")
	Conf.Server.DebugHost = v.GetString("serverDebugHost")
	Conf.Server.ShutdownTimeout = v.GetDuration("serverShutdownTimeout")
	Conf.Server.JWTExpirationDelta = v.GetDuration("jwtExpirationDelta")
	Conf.Server.JWTRefreshExpirationDelta = v.GetDuration("jwtRefreshExpirationDelta")
	Conf.Database.Engine = v.GetString("dbEngine")
	Conf.Database.Name = v.GetString("dbName")
	Conf.Database.User = v.GetString("dbUser")
	Conf.Database.Password = v.GetString("dbPassword")
	Conf.Database.AdminUser = v.GetString("dbAdminUser")
	Conf.Database.AdminPassword = v.GetString("dbAdminPassword")
	Conf.Database.Host = v.GetString("dbHost")
	Conf.Database.Port = v.GetInt("dbPort")
	Conf.Database.DisableTLS = v.GetBool("dbDisableTLS")
	Conf.Redis.Host = v.GetString("redisHost")
	Conf.Redis.Port = v.GetInt("redisPort")
	Conf.Redis.TokenDB = v.GetInt("redisTokenDB")
}

// Getwd returns the app's working directory.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}
	return wd
}
