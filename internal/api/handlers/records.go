package handlers

import (
	"net/http"

	"github.com/fbos/fieldservice/internal/api/dto"
	"github.com/fbos/fieldservice/internal/domain/accounting"
	"github.com/fbos/fieldservice/internal/domain/company"
	"github.com/fbos/fieldservice/internal/domain/customer"
	"github.com/fbos/fieldservice/internal/domain/material"
	"github.com/fbos/fieldservice/internal/domain/serviceprice"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/utils"
	"github.com/fbos/fieldservice/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// MaterialHandler handles material catalogue requests
type MaterialHandler struct {
	service   material.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewMaterialHandler(service material.Service, log *logger.Logger, val *validator.Validator) *MaterialHandler {
	return &MaterialHandler{service: service, logger: log, validator: val}
}

// List returns the caller's materials ordered by name
func (h *MaterialHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	materials, err := h.service.List(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list materials")
		return
	}
	if materials == nil {
		materials = []*material.Material{}
	}
	utils.WriteSuccess(w, http.StatusOK, materials)
}

func (h *MaterialHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateMaterialRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	m, err := h.service.Create(r.Context(), &material.Material{
		UserID:       user.ID,
		Name:         req.Name,
		Unit:         req.Unit,
		DefaultPrice: req.DefaultPrice,
		IsCustom:     req.IsCustom,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create material")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, m)
}

func (h *MaterialHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateMaterialRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	m, err := h.service.Update(r.Context(), user.ID, chi.URLParam(r, "id"), material.Update{
		Name:         req.Name,
		Unit:         req.Unit,
		DefaultPrice: req.DefaultPrice,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update material")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, m)
}

// Delete removes a material; 409 while an order still uses it
func (h *MaterialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete material")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CustomerHandler handles customer requests
type CustomerHandler struct {
	service   customer.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewCustomerHandler(service customer.Service, log *logger.Logger, val *validator.Validator) *CustomerHandler {
	return &CustomerHandler{service: service, logger: log, validator: val}
}

// List returns a page of customers, optionally filtered by ?search=
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	p := utils.ParsePaginationParams(r)
	customers, total, err := h.service.List(r.Context(), user.ID, r.URL.Query().Get("search"), p.PageSize, p.Offset)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list customers")
		return
	}
	if customers == nil {
		customers = []*customer.Customer{}
	}
	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(customers, p.Page, p.PageSize, total))
}

func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	c, err := h.service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get customer")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, c)
}

func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CustomerRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	c, err := h.service.Create(r.Context(), &customer.Customer{
		UserID:  user.ID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create customer")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, c)
}

func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CustomerRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	c, err := h.service.Update(r.Context(), &customer.Customer{
		ID:      chi.URLParam(r, "id"),
		UserID:  user.ID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update customer")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, c)
}

func (h *CustomerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SettingsHandler serves the price table and company profile
type SettingsHandler struct {
	prices    serviceprice.Service
	company   company.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewSettingsHandler(prices serviceprice.Service, companies company.Service, log *logger.Logger, val *validator.Validator) *SettingsHandler {
	return &SettingsHandler{prices: prices, company: companies, logger: log, validator: val}
}

func (h *SettingsHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	p, err := h.prices.Get(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get service prices")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, p)
}

// SavePrices replaces the caller's price table
func (h *SettingsHandler) SavePrices(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.PricesRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	if req.InstallationPrices == nil {
		req.InstallationPrices = map[string]map[string]string{}
	}
	if req.CleaningPrices == nil {
		req.CleaningPrices = map[string]string{}
	}

	p, err := h.prices.Save(r.Context(), &serviceprice.Prices{
		UserID:             user.ID,
		InstallationPrices: req.InstallationPrices,
		CleaningPrices:     req.CleaningPrices,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save service prices")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, p)
}

func (h *SettingsHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	info, err := h.company.Get(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get company information")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, info)
}

func (h *SettingsHandler) SaveCompany(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CompanyRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	info, err := h.company.Save(r.Context(), &company.Info{
		UserID: user.ID,
		Name:   req.Name,
		CNPJ:   req.CNPJ,
		Phone:  req.Phone,
		Email:  req.Email,
		Logo:   req.Logo,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to save company information")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, info)
}

// AccountingHandler serves monthly summaries
type AccountingHandler struct {
	service   accounting.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewAccountingHandler(service accounting.Service, log *logger.Logger, val *validator.Validator) *AccountingHandler {
	return &AccountingHandler{service: service, logger: log, validator: val}
}

// Summary handles GET /accounting/summary?month=YYYY-MM
func (h *AccountingHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	req := dto.AccountingSummaryRequest{Month: r.URL.Query().Get("month")}
	if errs := h.validator.Validate(req); len(errs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", errs))
		return
	}

	s, err := h.service.MonthlySummary(r.Context(), user.ID, req.Month)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to build accounting summary")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, s)
}
