package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/attendance-service/internal/api/dto"
	"github.com/spec-kit/attendance-service/internal/auth"
	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/service"
	apperrors "github.com/spec-kit/attendance-service/pkg/util"
)

// AttendanceHandler exposes the check-in/check-out endpoints. Domain failures
// come back as 200 responses with success=false and an actionable error code;
// only infrastructure problems become 5xx.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Status handles GET /attendance/status.
func (h *AttendanceHandler) Status(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing credentials")
	}

	status, err := h.attendance.GetStatus(c.UserContext(), principal.UserID)
	if err != nil {
		return apperrors.MapError(err)
	}

	resp := dto.StatusResponse{
		IsCheckedIn: status.IsCheckedIn,
		CanCheckIn:  status.CanCheckIn,
		LastRecord:  recordResponse(status.LastRecord),
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CheckIn handles POST /attendance/check-in.
func (h *AttendanceHandler) CheckIn(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing credentials")
	}

	var req dto.CheckInRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	locationType := domain.LocationType(req.LocationType)
	if locationType != domain.LocationTypeWork && locationType != domain.LocationTypeClass {
		return fiber.NewError(http.StatusBadRequest, "location_type must be WORK or CLASS")
	}
	if req.LocationID == "" {
		return fiber.NewError(http.StatusBadRequest, "location_id required")
	}

	result, err := h.attendance.CheckIn(c.UserContext(), principal.UserID, service.CheckInInput{
		LocationType: locationType,
		LocationID:   req.LocationID,
		QRCode:       req.QRCode,
		SelfieRef:    req.SelfieRef,
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	if !result.Success {
		return c.JSON(fiber.Map{"data": fiber.Map{
			"success": false,
			"error":   string(result.Failure),
		}})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"success":     true,
		"check_in_id": result.CheckInID,
	}})
}

// CheckOut handles POST /attendance/check-out.
func (h *AttendanceHandler) CheckOut(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("missing credentials")
	}

	var req dto.CheckOutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.CheckInID == "" {
		return fiber.NewError(http.StatusBadRequest, "check_in_id required")
	}

	result, err := h.attendance.CheckOut(c.UserContext(), principal.UserID, req.CheckInID, req.Notes)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !result.Success {
		return c.JSON(fiber.Map{"data": fiber.Map{
			"success": false,
			"error":   string(result.Failure),
		}})
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"success":     true,
		"total_hours": result.TotalHours,
	}})
}

func recordResponse(rec *domain.AttendanceRecord) *dto.AttendanceRecordResponse {
	if rec == nil {
		return nil
	}
	return &dto.AttendanceRecordResponse{
		ID:           rec.ID,
		CheckInTime:  rec.CheckInTime,
		CheckOutTime: rec.CheckOutTime,
		LocationType: string(rec.LocationType),
		LocationID:   rec.LocationID,
		Verified:     rec.Verified,
		TotalHours:   rec.TotalHours,
	}
}
