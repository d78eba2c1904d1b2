package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"sarvsaathi-server/internal/accounts"
	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/utils"
)

// FamilyService manages family members and emergency contacts.
type FamilyService interface {
	FamilyMembers(ctx context.Context, userID string) ([]models.FamilyMember, error)
	FamilyMember(ctx context.Context, userID, id string) (*models.FamilyMember, error)
	AddFamilyMember(ctx context.Context, userID string, in accounts.MemberInput) (*models.FamilyMember, error)
	UpdateFamilyMember(ctx context.Context, userID, id string, in accounts.MemberInput) (*models.FamilyMember, error)
	RemoveFamilyMember(ctx context.Context, userID, id string) error

	EmergencyContacts(ctx context.Context, userID string) ([]models.EmergencyContact, error)
	AddEmergencyContact(ctx context.Context, userID string, in accounts.ContactInput) (*models.EmergencyContact, error)
	UpdateEmergencyContact(ctx context.Context, userID, id string, in accounts.ContactInput) (*models.EmergencyContact, error)
	RemoveEmergencyContact(ctx context.Context, userID, id string) error
}

type FamilyHandler struct {
	svc FamilyService
}

func NewFamilyHandler(svc FamilyService) *FamilyHandler {
	return &FamilyHandler{svc: svc}
}

func (h *FamilyHandler) ListMembers(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	members, err := h.svc.FamilyMembers(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Family members retrieved successfully", members)
}

func (h *FamilyHandler) GetMember(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	member, err := h.svc.FamilyMember(c.Request.Context(), id, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Family member retrieved successfully", member)
}

func (h *FamilyHandler) AddMember(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req accounts.MemberInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	member, err := h.svc.AddFamilyMember(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Family member added successfully", member)
}

func (h *FamilyHandler) UpdateMember(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req accounts.MemberInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	member, err := h.svc.UpdateFamilyMember(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Family member updated successfully", member)
}

func (h *FamilyHandler) RemoveMember(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveFamilyMember(c.Request.Context(), id, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Family member removed successfully", nil)
}

func (h *FamilyHandler) ListContacts(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	contacts, err := h.svc.EmergencyContacts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Emergency contacts retrieved successfully", contacts)
}

func (h *FamilyHandler) AddContact(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req accounts.ContactInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	contact, err := h.svc.AddEmergencyContact(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, "Emergency contact added successfully", contact)
}

func (h *FamilyHandler) UpdateContact(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	var req accounts.ContactInput
	if !utils.BindAndValidate(c, &req) {
		return
	}
	contact, err := h.svc.UpdateEmergencyContact(c.Request.Context(), id, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Emergency contact updated successfully", contact)
}

func (h *FamilyHandler) RemoveContact(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveEmergencyContact(c.Request.Context(), id, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, "Emergency contact removed successfully", nil)
}
