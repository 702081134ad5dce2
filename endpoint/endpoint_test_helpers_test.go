package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/middleware"
	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

// endpointTestModels is the full schema migrated for endpoint tests.
var endpointTestModels = []interface{}{
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
}

// setupEndpointTest returns a router wired exactly like the production route
// table, backed by a fresh in-memory database.
func setupEndpointTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:eptest_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(endpointTestModels...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	if err := model.SeedProfiles(db); err != nil {
		t.Fatalf("seed profiles failed: %v", err)
	}

	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))

	r.POST("/user/sign_up", SignUp)
	r.POST("/user/sign_in", SignIn)

	pending := r.Group("/", middleware.TokenRequired())
	pending.POST("/user/verify_identity", VerifyIdentity)
	pending.GET("/user/resend_verification_code", ResendVerificationCode)
	pending.GET("/user/sign_out", SignOut)
	pending.GET("/user/me", Me)

	verified := r.Group("/", middleware.TokenRequired(), middleware.RequireVerified())
	verified.GET("/user", GetUserByUsername)
	verified.PATCH("/user", UpdateUser)
	verified.DELETE("/user", DeactivateUser)
	verified.PATCH("/user/password", ChangePassword)
	verified.GET("/associations", ListAssociations)
	verified.GET("/medical_history/mine", GetOwnReports)
	verified.PATCH("/medical_history/:id/feedback", SetPatientFeedback)
	verified.PATCH("/medical_history/:id/appointment", Reschedule)
	verified.POST("/images", UploadImage)
	verified.GET("/images", ListImages)
	verified.POST("/images/:id/diagnostics", AttachDiagnostic)
	verified.GET("/images/:id/diagnostics", ListDiagnostics)

	doctor := r.Group("/", middleware.TokenRequired(), middleware.RequireVerified(), middleware.RequireDoctor())
	doctor.GET("/user/patients", GetPatients)
	doctor.POST("/associations", CreateAssociation)
	doctor.POST("/medical_history", CreateReport)
	doctor.GET("/medical_history/patient/:id", GetPatientReports)

	return r, db
}

var testUserSeq int

// createUser inserts an active user directly and returns it with a token.
func createUser(t *testing.T, db *gorm.DB, profileID uint, status string) (model.User, string) {
	t.Helper()

	testUserSeq++
	salt, err := util.GenerateSalt()
	assert.NoError(t, err)
	hash, err := util.HashPassword("secretpassword", salt)
	assert.NoError(t, err)

	user := model.User{
		Name:          fmt.Sprintf("Test User %d", testUserSeq),
		Username:      fmt.Sprintf("user%d", testUserSeq),
		Email:         fmt.Sprintf("user%d@example.com", testUserSeq),
		PasswordHash:  hash,
		PasswordSalt:  salt,
		BirthDate:     "1990-04-21",
		ProfileID:     profileID,
		AccountStatus: status,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}

	token, err := util.IssueToken(user)
	assert.NoError(t, err)
	return user, token
}

func createDoctor(t *testing.T, db *gorm.DB) (model.User, string) {
	t.Helper()
	return createUser(t, db, model.ProfileDoctor, model.StatusActive)
}

func createPatient(t *testing.T, db *gorm.DB) (model.User, string) {
	t.Helper()
	return createUser(t, db, model.ProfilePatient, model.StatusActive)
}

func associate(t *testing.T, db *gorm.DB, doctor, patient model.User) model.DoctorPatientAssociation {
	t.Helper()
	assoc := model.DoctorPatientAssociation{DoctorID: doctor.ID, PatientID: patient.ID}
	if err := db.Create(&assoc).Error; err != nil {
		t.Fatalf("failed to create association: %v", err)
	}
	return assoc
}

// doRequest performs a JSON request against the test router.
func doRequest(t *testing.T, r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(middleware.TokenHeader, token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// parseResponse decodes the standard envelope.
func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return resp
}
