package endpoint

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/genesishealth/genesis-api/model"
	"github.com/genesishealth/genesis-api/util"
)

// UploadImage godoc
// @Summary      Upload a diagnostic image
// @Description  Stores the image bytes in the blob store and records it for the calling user
// @Tags         Images
// @Accept       multipart/form-data
// @Produce      json
// @Security     ApiKeyAuth
// @Param        image formData file true "Image file"
// @Success      201 {object} util.APIResponse "Image stored"
// @Failure      400 {object} util.APIResponse "Missing file"
// @Failure      500 {object} util.APIResponse "Storage failure"
// @Router       /images [post]
func UploadImage(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		util.CallError(c, util.APIErrorParams{
			Msg: "Image file is required",
			Err: util.ErrInvalidRequestParameters,
		})
		return
	}

	store := util.GetBlobStore()
	if store == nil {
		util.CallServerError(c, util.APIErrorParams{
			Msg: "Image storage not configured",
			Err: errors.New("no blob store installed"),
		})
		return
	}

	file, err := header.Open()
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to read uploaded file", Err: err})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := util.RandomObjectKey()
	if err := store.Put(c.Request.Context(), key, file, contentType); err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to store image", Err: err})
		return
	}

	userImage := model.UserImage{UserID: user.ID}
	err = db.Transaction(func(tx *gorm.DB) error {
		image := model.Image{Name: header.Filename, StorageKey: key}
		if err := tx.Create(&image).Error; err != nil {
			return err
		}
		userImage.ImageID = image.ID
		userImage.Image = image
		return tx.Create(&userImage).Error
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to record image", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Image stored", Data: userImage})
}

// ListImages godoc
// @Summary      List the calling user's images
// @Tags         Images
// @Produce      json
// @Security     ApiKeyAuth
// @Success      200 {object} util.APIResponse "Images"
// @Router       /images [get]
func ListImages(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	var images []model.UserImage
	err := db.Preload("Image").Preload("Diagnostics").
		Where("user_id = ? AND active = ?", user.ID, true).
		Find(&images).Error
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list images", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Images", Data: images})
}

// visibleUserImage loads the image when the caller owns it or is a doctor
// associated with its owner. Anything else reads as not found.
func visibleUserImage(db *gorm.DB, imageID uint64, caller model.User) (model.UserImage, error) {
	var userImage model.UserImage
	err := db.Preload("Image").Where("id = ? AND active = ?", imageID, true).First(&userImage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return userImage, util.ErrImageNotFound
	}
	if err != nil {
		return userImage, err
	}

	if userImage.UserID == caller.ID {
		return userImage, nil
	}
	if caller.IsDoctor() {
		if _, err := findAssociation(db, caller.ID, userImage.UserID); err == nil {
			return userImage, nil
		}
	}
	return userImage, util.ErrImageNotFound
}

type AttachDiagnosticRequest struct {
	Sickness    string  `json:"sickness" binding:"required" example:"melanoma"`
	Description string  `json:"description" example:"irregular border, asymmetric"`
	Precision   float64 `json:"precision" binding:"required" example:"0.87"`
}

// AttachDiagnostic godoc
// @Summary      Attach a machine-generated diagnostic to an image
// @Description  Diagnostics accumulate on the image; existing ones are never replaced
// @Tags         Images
// @Accept       json
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Image id"
// @Param        request body AttachDiagnosticRequest true "Diagnostic"
// @Success      201 {object} util.APIResponse "Diagnostic attached"
// @Failure      404 {object} util.APIResponse "Image not found"
// @Router       /images/{id}/diagnostics [post]
func AttachDiagnostic(c *gin.Context) {
	var req AttachDiagnosticRequest
	if !bindJSONOrRespond(c, &req) {
		return
	}

	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	imageID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.CallError(c, util.APIErrorParams{Msg: "Invalid image id", Err: util.ErrInvalidRequestParameters})
		return
	}

	userImage, err := visibleUserImage(db, imageID, user)
	if errors.Is(err, util.ErrImageNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "Image not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up image", Err: err})
		return
	}

	diagnostic := model.MlDiagnostic{
		Sickness:    req.Sickness,
		Description: req.Description,
		Precision:   req.Precision,
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&diagnostic).Error; err != nil {
			return err
		}
		return tx.Model(&userImage).Association("Diagnostics").Append(&diagnostic)
	})
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to attach diagnostic", Err: err})
		return
	}

	util.CallSuccessCreated(c, util.APISuccessParams{Msg: "Diagnostic attached", Data: diagnostic})
}

// ListDiagnostics godoc
// @Summary      List the diagnostics attached to an image
// @Tags         Images
// @Produce      json
// @Security     ApiKeyAuth
// @Param        id path int true "Image id"
// @Success      200 {object} util.APIResponse "Diagnostics"
// @Failure      404 {object} util.APIResponse "Image not found"
// @Router       /images/{id}/diagnostics [get]
func ListDiagnostics(c *gin.Context) {
	db, ok := getDBOrRespond(c)
	if !ok {
		return
	}
	user, ok := currentUserOrRespond(c)
	if !ok {
		return
	}

	imageID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		util.CallError(c, util.APIErrorParams{Msg: "Invalid image id", Err: util.ErrInvalidRequestParameters})
		return
	}

	userImage, err := visibleUserImage(db, imageID, user)
	if errors.Is(err, util.ErrImageNotFound) {
		util.CallError(c, util.APIErrorParams{Msg: "Image not found", Err: err})
		return
	}
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to look up image", Err: err})
		return
	}

	var diagnostics []model.MlDiagnostic
	err = db.Model(&userImage).Association("Diagnostics").Find(&diagnostics)
	if err != nil {
		util.CallServerError(c, util.APIErrorParams{Msg: "Failed to list diagnostics", Err: err})
		return
	}

	util.CallSuccessOK(c, util.APISuccessParams{Msg: "Diagnostics", Data: diagnostics})
}
