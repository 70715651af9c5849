package handlers

import (
	"net/http"
	"time"

	"github.com/fbos/fieldservice/internal/api/dto"
	"github.com/fbos/fieldservice/internal/domain/serviceorder"
	"github.com/fbos/fieldservice/internal/pkg/errors"
	"github.com/fbos/fieldservice/internal/pkg/logger"
	"github.com/fbos/fieldservice/internal/pkg/utils"
	"github.com/fbos/fieldservice/internal/pkg/validator"
	"github.com/go-chi/chi/v5"
)

// maxPhotoBytes bounds a single photo upload
const maxPhotoBytes = 10 << 20

// ServiceOrderHandler handles service order requests
type ServiceOrderHandler struct {
	service   serviceorder.Service
	logger    *logger.Logger
	validator *validator.Validator
}

func NewServiceOrderHandler(service serviceorder.Service, log *logger.Logger, val *validator.Validator) *ServiceOrderHandler {
	return &ServiceOrderHandler{service: service, logger: log, validator: val}
}

// Create stores a new order; the total is computed from its services
func (h *ServiceOrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateServiceOrderRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	o := &serviceorder.Order{
		UserID:     user.ID,
		CustomerID: req.CustomerID,
		Address: serviceorder.Address{
			Street:       req.Address.Street,
			Number:       req.Address.Number,
			Complement:   req.Address.Complement,
			Neighborhood: req.Address.Neighborhood,
			City:         req.Address.City,
			State:        req.Address.State,
			ZipCode:      req.Address.ZipCode,
		},
		Status:        req.Status,
		IncludePhotos: req.IncludePhotos,
		LocationLat:   req.LocationLat,
		LocationLng:   req.LocationLng,
	}
	for _, s := range req.Services {
		o.Items = append(o.Items, serviceorder.Item{
			ServiceType:    s.ServiceType,
			EquipmentType:  s.EquipmentType,
			EquipmentPower: s.EquipmentPower,
			Value:          s.CustomServiceValue,
			Description:    s.Description,
		})
	}
	for _, m := range req.Materials {
		o.Materials = append(o.Materials, serviceorder.MaterialLine{
			MaterialID: m.MaterialID,
			Quantity:   m.Quantity,
			UnitPrice:  m.UnitPrice,
		})
	}

	created, err := h.service.Create(r.Context(), o)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create service order")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, created)
}

// List returns a page of orders, newest first. Supports ?status=,
// ?customer_id=, and RFC 3339 ?from= / ?to= bounds.
func (h *ServiceOrderHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filter := serviceorder.Filter{
		Status:     q.Get("status"),
		CustomerID: q.Get("customer_id"),
	}
	var err error
	if filter.From, err = parseTimeParam(q.Get("from")); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid from timestamp"))
		return
	}
	if filter.To, err = parseTimeParam(q.Get("to")); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid to timestamp"))
		return
	}

	p := utils.ParsePaginationParams(r)
	orders, total, err := h.service.List(r.Context(), user.ID, filter, p.PageSize, p.Offset)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list service orders")
		return
	}
	if orders == nil {
		orders = []*serviceorder.Order{}
	}
	utils.WriteSuccess(w, http.StatusOK, utils.NewPaginatedResponse(orders, p.Page, p.PageSize, total))
}

func (h *ServiceOrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	o, err := h.service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get service order")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, o)
}

func (h *ServiceOrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.UpdateStatus(r.Context(), user.ID, id, req.Status); err != nil {
		writeServiceError(w, h.logger, err, "Failed to update service order status")
		return
	}

	o, err := h.service.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get service order")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, o)
}

func (h *ServiceOrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete service order")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadPhoto accepts a multipart form with a "photo" file and a
// "photo_type" of before, during or after
func (h *ServiceOrderHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoBytes+(1<<20))
	if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		utils.WriteError(w, errors.BadRequest("photo file is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, _ := file.Read(sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, 0); err != nil {
			utils.WriteError(w, errors.Internal("Failed to read upload", err))
			return
		}
	}

	photo, err := h.service.AddPhoto(r.Context(), user.ID, chi.URLParam(r, "id"), serviceorder.PhotoUpload{
		PhotoType:   r.FormValue("photo_type"),
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to upload photo")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, photo)
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
