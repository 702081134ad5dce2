package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/genesishealth/genesis-api/config"
	"github.com/genesishealth/genesis-api/endpoint"
	"github.com/genesishealth/genesis-api/middleware"
	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

func main() {
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Profile{},
		&model.User{},
		&model.VerificationCode{},
		&model.DoctorPatientAssociation{},
		&model.Prescription{},
		&model.MedicalHistory{},
		&model.Image{},
		&model.UserImage{},
		&model.MlDiagnostic{},
		&model.AuditLog{},
	); err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}
	if err := model.SeedProfiles(db); err != nil {
		log.Fatalf("Error seeding profiles: %v", err)
	}

	util.SetAuditLoggerDB(db)

	// Redis backs the token denylist and the rate limiter; both degrade
	// fail-open when it is unavailable, so startup does not.
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable, sign-out and rate limiting degraded: %v", err)
	}

	setupMailer(cfg)
	setupLicenseVerifier(cfg)
	setupBlobStore(cfg)

	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	credentialLimiter := middleware.RateLimiter(middleware.RateLimitConfig{})

	router.POST("/user/sign_up", credentialLimiter, endpoint.SignUp)
	router.POST("/user/sign_in", credentialLimiter, endpoint.SignIn)

	// Authenticated but still pending: verification routes must be reachable
	// before the account is activated.
	pending := router.Group("/", middleware.TokenRequired())
	pending.POST("/user/verify_identity", endpoint.VerifyIdentity)
	pending.GET("/user/resend_verification_code", credentialLimiter, endpoint.ResendVerificationCode)
	pending.GET("/user/sign_out", endpoint.SignOut)
	pending.GET("/user/me", endpoint.Me)

	// Verified accounts only.
	verified := router.Group("/", middleware.TokenRequired(), middleware.RequireVerified())
	verified.GET("/user", endpoint.GetUserByUsername)
	verified.PATCH("/user", endpoint.UpdateUser)
	verified.DELETE("/user", endpoint.DeactivateUser)
	verified.PATCH("/user/password", credentialLimiter, endpoint.ChangePassword)
	verified.GET("/associations", endpoint.ListAssociations)
	verified.GET("/medical_history/mine", endpoint.GetOwnReports)
	verified.PATCH("/medical_history/:id/feedback", endpoint.SetPatientFeedback)
	verified.PATCH("/medical_history/:id/appointment", endpoint.Reschedule)
	verified.POST("/images", endpoint.UploadImage)
	verified.GET("/images", endpoint.ListImages)
	verified.POST("/images/:id/diagnostics", endpoint.AttachDiagnostic)
	verified.GET("/images/:id/diagnostics", endpoint.ListDiagnostics)

	// Doctor-side routes.
	doctor := router.Group("/", middleware.TokenRequired(), middleware.RequireVerified(), middleware.RequireDoctor())
	doctor.GET("/user/patients", endpoint.GetPatients)
	doctor.POST("/associations", endpoint.CreateAssociation)
	doctor.POST("/medical_history", credentialLimiter, endpoint.CreateReport)
	doctor.GET("/medical_history/patient/:id", endpoint.GetPatientReports)

	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}

// setupMailer wires the SMTP worker pool when a relay is configured.
func setupMailer(cfg *config.Config) {
	if cfg.SMTPHost == "" {
		log.Println("No SMTP relay configured, outbound mail disabled")
		return
	}

	var auth smtp.Auth
	if cfg.SMTPUser != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	sender := &util.SMTPSender{
		Addr: fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		From: cfg.SMTPFrom,
		Auth: auth,
	}

	pool := util.NewMailerPool(sender, cfg.MailQueue)
	pool.Start(cfg.MailWorkers)
	util.SetMailerPool(pool)
}

// setupLicenseVerifier points doctor sign-up at the external registry.
func setupLicenseVerifier(cfg *config.Config) {
	if cfg.LicenseAPIURL == "" {
		log.Println("No license registry configured, doctor sign-up disabled")
		return
	}
	util.SetLicenseVerifier(util.NewHTTPLicenseVerifier(cfg.LicenseAPIURL))
}

// setupBlobStore wires the S3-compatible image store.
func setupBlobStore(cfg *config.Config) {
	if cfg.S3Bucket == "" {
		log.Println("No image bucket configured, uploads disabled")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	store, err := util.NewS3Store(ctx, util.S3StoreConfig{
		Endpoint:  cfg.S3Endpoint,
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	})
	if err != nil {
		log.Printf("Image store unavailable, uploads disabled: %v", err)
		return
	}
	util.SetBlobStore(store)
}
