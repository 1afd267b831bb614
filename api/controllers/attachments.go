package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/attachments"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

const multipartMemory = 8 << 20

// UploadAttachment stores one multipart file and returns the reference the client attaches
// to a request or dispute.
func UploadAttachment(svc attachments.Service, maxUploadMB int, logg *logger.Logger) http.HandlerFunc {
	limit := int64(maxUploadMB) << 20
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if limit > 0 {
			// room for the multipart envelope around the file
			r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemory)
		}
		if err := r.ParseMultipartForm(multipartMemory); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "file too large"))
				return
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}
		defer func() {
			_ = r.MultipartForm.RemoveAll()
		}()

		entity, err := enums.ParseAttachmentEntity(strings.TrimSpace(r.FormValue("entity")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entity").
				WithDetails(map[string]string{"entity": "is invalid"}))
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file is required").
				WithDetails(map[string]string{"file": "is required"}))
			return
		}
		defer file.Close()

		ref, err := svc.Upload(r.Context(), actor, attachments.UploadInput{
			Entity:      entity,
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			SizeBytes:   header.Size,
			Body:        file,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ref)
	}
}
