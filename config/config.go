package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// Config holds the application's configuration values.
type Config struct {
	AppName string `json:"appname"`
	AppEnv  string `json:"appenv"`
	AppPort uint16 `json:"appport"`
	GinMode string `json:"ginmode"`

	DBHost string `json:"dbhost"`
	DBPort uint16 `json:"dbport"`
	DBName string `json:"dbname"`
	DBUser string `json:"dbuser"`
	DBPass string `json:"dbpass"`

	SMTPHost string `json:"smtphost"`
	SMTPPort uint16 `json:"smtpport"`
	SMTPUser string `json:"smtpuser"`
	SMTPPass string `json:"smtppass"`
	SMTPFrom string `json:"smtpfrom"`

	MailWorkers int `json:"mailworkers"`
	MailQueue   int `json:"mailqueue"`

	S3Endpoint  string `json:"s3endpoint"`
	S3Region    string `json:"s3region"`
	S3Bucket    string `json:"s3bucket"`
	S3AccessKey string `json:"s3accesskey"`
	S3SecretKey string `json:"s3secretkey"`

	LicenseAPIURL string `json:"licenseapiurl"`
}

var config *Config
var once sync.Once

func envUint16(key string) uint16 {
	v, _ := strconv.ParseUint(os.Getenv(key), 10, 16)
	return uint16(v)
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// LoadConfig loads the environment variables from a .env file, and returns
// a singleton Config instance. A missing .env file is not fatal so tests
// and containerized deployments can rely on the process environment alone.
func LoadConfig() *Config {
	once.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Printf("No .env file loaded: %v", err)
		}

		config = &Config{
			AppName: os.Getenv("APPNAME"),
			AppEnv:  os.Getenv("APPENV"),
			AppPort: envUint16("APPPORT"),
			GinMode: os.Getenv("GINMODE"),

			DBHost: os.Getenv("DBHOST"),
			DBPort: envUint16("DBPORT"),
			DBName: os.Getenv("DBNAME"),
			DBUser: os.Getenv("DBUSER"),
			DBPass: os.Getenv("DBPASS"),

			SMTPHost: os.Getenv("SMTPHOST"),
			SMTPPort: envUint16("SMTPPORT"),
			SMTPUser: os.Getenv("SMTPUSER"),
			SMTPPass: os.Getenv("SMTPPASS"),
			SMTPFrom: os.Getenv("SMTPFROM"),

			MailWorkers: envInt("MAIL_WORKERS", 2),
			MailQueue:   envInt("MAIL_QUEUE", 32),

			S3Endpoint:  os.Getenv("S3_ENDPOINT"),
			S3Region:    os.Getenv("S3_REGION"),
			S3Bucket:    os.Getenv("S3_BUCKET"),
			S3AccessKey: os.Getenv("S3_ACCESS_KEY"),
			S3SecretKey: os.Getenv("S3_SECRET_KEY"),

			LicenseAPIURL: os.Getenv("LICENSE_API_URL"),
		}
	})
	return config
}

// ConnectMySQL establishes a connection to a MySQL database using the
// configuration values.
func ConnectMySQL() (*gorm.DB, error) {
	cfg := LoadConfig()
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
