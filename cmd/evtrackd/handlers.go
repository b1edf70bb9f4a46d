package main

import (
	"errors"
	"net/http"

	"evtrack-backend/lib/browser"
	"evtrack-backend/lib/scrapers/evtrack"
	"evtrack-backend/lib/timefmt"
	"evtrack-backend/services/automation"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *automation.Service
	hub     *progressHub
}

func NewHandler(service *automation.Service, hub *progressHub) *Handler {
	return &Handler{service: service, hub: hub}
}

func (h *Handler) progress() automation.ProgressFunc {
	return h.hub.Report
}

// respondError maps workflow failures onto status codes: caller input
// 400, unknown visitor 404, target-site auth 401, session provisioning
// 500.
func respondError(c *gin.Context, err error) {
	var inputErr automation.InputError
	var authErr evtrack.AuthenticationError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &inputErr):
		status = http.StatusBadRequest
	case errors.Is(err, automation.ErrVisitorNotFound):
		status = http.StatusNotFound
	case errors.As(err, &authErr), errors.Is(err, evtrack.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, browser.ErrSessionStart):
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{"success": false, "message": err.Error()})
}

func respondSave(c *gin.Context, outcome automation.SaveOutcome) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"outcome": outcome.Outcome,
		"message": outcome.Message,
		"uuid":    outcome.Uuid,
	})
}

// validTimes rejects malformed HH:MM values before any page is touched.
func validTimes(c *gin.Context, values ...string) bool {
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, err := timefmt.ValidateHHMM(value); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
			return false
		}
	}
	return true
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) AuthTest(c *gin.Context) {
	if err := h.service.CheckLogin(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "credentials accepted"})
}

func (h *Handler) NotImplemented(c *gin.Context) {
	c.JSON(http.StatusNotImplemented, gin.H{
		"success": false,
		"message": "google sheets integration is not implemented",
	})
}

type visitorBody struct {
	Name string `json:"name" form:"name"`

	FirstName         string `json:"first_name" form:"first_name"`
	LastName          string `json:"last_name" form:"last_name"`
	Initials          string `json:"initials" form:"initials"`
	IdentityNr        string `json:"identity_nr" form:"identity_nr"`
	Company           string `json:"company" form:"company"`
	Email             string `json:"email" form:"email"`
	Address           string `json:"address" form:"address"`
	DateOfBirth       string `json:"date_of_birth" form:"date_of_birth"`
	Comments          string `json:"comments" form:"comments"`
	Mobile            string `json:"mobile" form:"mobile"`
	AlternativeNumber string `json:"alternative_number" form:"alternative_number"`
	Gender            string `json:"gender" form:"gender"`
	Nationality       string `json:"nationality" form:"nationality"`
	CountryOfIssue    string `json:"country_of_issue" form:"country_of_issue"`
	VisitReason       string `json:"visit_reason" form:"visit_reason"`

	FirstNations          *bool `json:"first_nations" form:"first_nations"`
	PeopleOfDetermination *bool `json:"people_of_determination" form:"people_of_determination"`
}

func (b visitorBody) input() evtrack.VisitorInput {
	return evtrack.VisitorInput{
		FirstName:             b.FirstName,
		LastName:              b.LastName,
		Initials:              b.Initials,
		IdentityNr:            b.IdentityNr,
		Company:               b.Company,
		Email:                 b.Email,
		Address:               b.Address,
		DateOfBirth:           b.DateOfBirth,
		Comments:              b.Comments,
		Mobile:                b.Mobile,
		AlternativeNumber:     b.AlternativeNumber,
		Gender:                b.Gender,
		Nationality:           b.Nationality,
		CountryOfIssue:        b.CountryOfIssue,
		VisitReason:           b.VisitReason,
		FirstNations:          b.FirstNations,
		PeopleOfDetermination: b.PeopleOfDetermination,
	}
}

func bindBody[T any](c *gin.Context) (T, bool) {
	var body T
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		return body, false
	}
	return body, true
}

// GET /visitors?name=...
func (h *Handler) ListVisitors(c *gin.Context) {
	term := c.Query("name")
	if term == "" {
		term = c.Query("search")
	}

	visitor, err := h.service.FindVisitor(c.Request.Context(), term, h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "visitor": visitorJson(visitor)})
}

// GET /visitors/:id
func (h *Handler) GetVisitor(c *gin.Context) {
	profile, err := h.service.GetVisitor(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

// POST /visitors
func (h *Handler) CreateVisitor(c *gin.Context) {
	body, ok := bindBody[visitorBody](c)
	if !ok {
		return
	}

	outcome, err := h.service.CreateVisitor(c.Request.Context(), body.input(), nil, h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSave(c, outcome)
}

// POST /visitors/update
func (h *Handler) UpdateVisitor(c *gin.Context) {
	body, ok := bindBody[visitorBody](c)
	if !ok {
		return
	}

	outcome, err := h.service.UpdateVisitor(c.Request.Context(), body.Name, body.input(), nil, h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSave(c, outcome)
}

// POST /visitors/profile
func (h *Handler) GetProfile(c *gin.Context) {
	body, ok := bindBody[struct {
		Name string `json:"name" form:"name"`
	}](c)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(c.Request.Context(), body.Name, h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "profile": profile})
}

// POST /visitors/badge
func (h *Handler) GetBadge(c *gin.Context) {
	body, ok := bindBody[struct {
		Name string `json:"name" form:"name"`
	}](c)
	if !ok {
		return
	}

	data, contentType, err := h.service.GetBadge(c.Request.Context(), body.Name, h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, data)
}

type vehicleBody struct {
	Name string `json:"name" form:"name"`

	NumberPlate       string `json:"number_plate" form:"number_plate"`
	VehicleType       string `json:"vehicle_type" form:"vehicle_type"`
	Make              string `json:"make" form:"make"`
	Model             string `json:"model" form:"model"`
	Year              string `json:"year" form:"year"`
	Colour            string `json:"colour" form:"colour"`
	Vin               string `json:"vin" form:"vin"`
	EngineNumber      string `json:"engine_number" form:"engine_number"`
	LicenceDiscNumber string `json:"licence_disc_number" form:"licence_disc_number"`
	LicenceExpiryDate string `json:"licence_expiry_date" form:"licence_expiry_date"`
	DocumentNumber    string `json:"document_number" form:"document_number"`
	Comments          string `json:"comments" form:"comments"`
}

func (b vehicleBody) input() evtrack.VehicleInput {
	return evtrack.VehicleInput{
		NumberPlate:    b.NumberPlate,
		VehicleType:    b.VehicleType,
		Make:           b.Make,
		Model:          b.Model,
		Year:           b.Year,
		Colour:         b.Colour,
		Vin:            b.Vin,
		EngineNumber:   b.EngineNumber,
		LicenceDiscNr:  b.LicenceDiscNumber,
		LicenceExpiry:  b.LicenceExpiryDate,
		DocumentNumber: b.DocumentNumber,
		Comments:       b.Comments,
	}
}

// POST /vehicles/add
func (h *Handler) AddVehicle(c *gin.Context) {
	body, ok := bindBody[vehicleBody](c)
	if !ok {
		return
	}

	outcome, err := h.service.AddVehicle(c.Request.Context(), body.Name, body.input(), h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSave(c, outcome)
}

// POST /vehicles/update
func (h *Handler) UpdateVehicle(c *gin.Context) {
	body, ok := bindBody[vehicleBody](c)
	if !ok {
		return
	}

	outcome, err := h.service.UpdateVehicle(c.Request.Context(), body.Name, body.input(), h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSave(c, outcome)
}

type credentialBody struct {
	Name string `json:"name" form:"name"`

	ReaderType       string `json:"reader_type" form:"reader_type"`
	UniqueIdentifier string `json:"unique_identifier" form:"unique_identifier"`
	Pin              string `json:"pin" form:"pin"`
	ActiveDate       string `json:"active_date" form:"active_date"`
	ActiveTime       string `json:"active_time" form:"active_time"`
	ExpiryDate       string `json:"expiry_date" form:"expiry_date"`
	ExpiryTime       string `json:"expiry_time" form:"expiry_time"`
	UseLimit         string `json:"use_limit" form:"use_limit"`
	Comments         string `json:"comments" form:"comments"`
	Status           string `json:"status" form:"status"`
	AccessControlled *bool  `json:"access_controlled" form:"access_controlled"`
}

func (b credentialBody) input() evtrack.CredentialInput {
	return evtrack.CredentialInput{
		ReaderType:       b.ReaderType,
		UniqueIdentifier: b.UniqueIdentifier,
		Pin:              b.Pin,
		ActiveDate:       b.ActiveDate,
		ActiveTime:       b.ActiveTime,
		ExpiryDate:       b.ExpiryDate,
		ExpiryTime:       b.ExpiryTime,
		UseLimit:         b.UseLimit,
		Comments:         b.Comments,
		Status:           b.Status,
		AccessControlled: b.AccessControlled,
	}
}

// POST /credentials/add
func (h *Handler) AddCredential(c *gin.Context) {
	body, ok := bindBody[credentialBody](c)
	if !ok {
		return
	}
	if !validTimes(c, body.ActiveTime, body.ExpiryTime) {
		return
	}

	outcome, err := h.service.AddCredential(c.Request.Context(), body.Name, body.input(), h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSave(c, outcome)
}

// POST /credentials/update
func (h *Handler) UpdateCredential(c *gin.Context) {
	body, ok := bindBody[credentialBody](c)
	if !ok {
		return
	}
	if !validTimes(c, body.ActiveTime, body.ExpiryTime) {
		return
	}

	outcome, err := h.service.UpdateCredential(c.Request.Context(), body.Name, body.input(), h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSave(c, outcome)
}

type inviteBody struct {
	Name string `json:"name" form:"name"`

	CredentialReaderType string `json:"credential_reader_type" form:"credential_reader_type"`
	VisitReason          string `json:"visit_reason" form:"visit_reason"`
	Location             string `json:"location" form:"location"`
	ActivateDate         string `json:"activate_date" form:"activate_date"`
	ActivateTime         string `json:"activate_time" form:"activate_time"`
	ExpiryDate           string `json:"expiry_date" form:"expiry_date"`
	ExpiryTime           string `json:"expiry_time" form:"expiry_time"`
}

// POST /visitors/invite
func (h *Handler) InviteVisitor(c *gin.Context) {
	body, ok := bindBody[inviteBody](c)
	if !ok {
		return
	}
	if !validTimes(c, body.ActivateTime, body.ExpiryTime) {
		return
	}

	input := evtrack.InviteInput{
		CredentialReaderType: body.CredentialReaderType,
		VisitReason:          body.VisitReason,
		Location:             body.Location,
		ActivateDate:         body.ActivateDate,
		ActivateTime:         body.ActivateTime,
		ExpiryDate:           body.ExpiryDate,
		ExpiryTime:           body.ExpiryTime,
	}
	outcome, err := h.service.InviteVisitor(c.Request.Context(), body.Name, input, h.progress())
	if err != nil {
		respondError(c, err)
		return
	}
	respondSave(c, outcome)
}

func visitorJson(v evtrack.Visitor) gin.H {
	return gin.H{
		"uuid":       v.Uuid,
		"status":     v.Status,
		"first_name": v.FirstName,
		"last_name":  v.LastName,
		"mobile":     v.Mobile,
	}
}
