package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Address                   string
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		DisableReqLogs            bool
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	BlobConfig struct {
		Driver        string // fs | s3 | memory
		FSRoot        string
		S3Bucket      string
		S3Region      string
		S3Endpoint    string
		S3PathStyle   bool
		PresignExpiry time.Duration
	}

	UploadConfig struct {
		MaxBytes     int64
		AllowedTypes []string
	}

	Config struct {
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		RollbarToken string
		SeedFile     string

		Server ServerConfig
		Blob   BlobConfig
		Upload UploadConfig
	}
)

// NewConfig loads the app configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed with the current env, e.g. `DEV_SERVER_ADDRESS`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Madrasa")
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("seedFile", "")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("blob.driver", "fs")
	v.SetDefault("blob.fsRoot", "./blobdata")
	v.SetDefault("blob.s3Bucket", "")
	v.SetDefault("blob.s3Region", "us-east-1")
	v.SetDefault("blob.s3Endpoint", "")
	v.SetDefault("blob.s3PathStyle", false)
	v.SetDefault("blob.presignExpiry", 15*time.Minute)
	v.SetDefault("upload.maxBytes", int64(10<<20))
	v.SetDefault("upload.allowedTypes", []string{"application/pdf"})

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("blob.driver", "memory")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		AppName:      v.GetString("appName"),
		SecretKey:    v.GetString("secretKey"),
		RollbarToken: v.GetString("rollbarToken"),
		SeedFile:     v.GetString("seedFile"),
		Server: ServerConfig{
			Address:                   v.GetString("server.address"),
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Blob: BlobConfig{
			Driver:        v.GetString("blob.driver"),
			FSRoot:        v.GetString("blob.fsRoot"),
			S3Bucket:      v.GetString("blob.s3Bucket"),
			S3Region:      v.GetString("blob.s3Region"),
			S3Endpoint:    v.GetString("blob.s3Endpoint"),
			S3PathStyle:   v.GetBool("blob.s3PathStyle"),
			PresignExpiry: v.GetDuration("blob.presignExpiry"),
		},
		Upload: UploadConfig{
			MaxBytes:     v.GetInt64("upload.maxBytes"),
			AllowedTypes: v.GetStringSlice("upload.allowedTypes"),
		},
	}
}
