package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"activerecord/internal/service"
)

type renameRequest struct {
	Filename string `json:"filename"`
}

type downloadResponse struct {
	URL string `json:"url"`
}

// documentID validates the :id path parameter. ok is false once the 400 has been written.
func documentID(c *fiber.Ctx) (id string, ok bool, err error) {
	id = c.Params("id")
	if _, perr := uuid.Parse(id); perr != nil {
		return "", false, writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
	}
	return id, true, nil
}

func positiveQuery(c *fiber.Ctx, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ListDocuments returns one page of documents, newest first.
//
//	@Summary	List documents
//	@Tags		documents
//	@Produce	json
//	@Param		page		query		int	false	"Page number, starting at 1"	default(1)
//	@Param		per_page	query		int	false	"Items per page"				default(10)
//	@Success	200			{object}	service.DocumentListResult
//	@Failure	400			{object}	errorPayload
//	@Failure	500			{object}	errorPayload
//	@Router		/documents [get]
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page, ok := positiveQuery(c, "page", 1)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PAGE", "page must be a positive integer")
		}
		perPage, ok := positiveQuery(c, "per_page", service.DefaultPerPage)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_PER_PAGE", "per_page must be a positive integer")
		}

		res, err := svc.List(c.UserContext(), page, perPage)
		if err != nil {
			return writeInternal(c, "list_documents", err)
		}
		return c.JSON(res)
	}
}

// UploadDocument stores the multipart "file" field.
//
//	@Summary	Upload a document
//	@Tags		documents
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		file	formData	file	true	"Document content"
//	@Success	201		{object}	model.Document
//	@Failure	400		{object}	errorPayload
//	@Failure	500		{object}	errorPayload
//	@Router		/documents [post]
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		ct := fh.Header.Get(fiber.HeaderContentType)
		if ct == "" {
			ct = fiber.MIMEOctetStream
		}

		doc, err := svc.Upload(c.UserContext(), f, fh.Filename, ct, fh.Size)
		if err != nil {
			return writeInternal(c, "upload_document", err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// GetDocument returns document metadata.
//
//	@Summary	Get a document
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Document ID (UUID)"
//	@Success	200	{object}	model.Document
//	@Failure	400	{object}	errorPayload
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [get]
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := documentID(c)
		if !ok {
			return err
		}
		doc, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeInternal(c, "get_document", err)
		}
		return c.JSON(doc)
	}
}

// RenameDocument changes the display filename.
//
//	@Summary	Rename a document
//	@Tags		documents
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string			true	"Document ID (UUID)"
//	@Param		body	body		renameRequest	true	"New filename"
//	@Success	200		{object}	model.Document
//	@Failure	400		{object}	errorPayload
//	@Failure	404		{object}	errorPayload
//	@Router		/documents/{id} [patch]
func RenameDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := documentID(c)
		if !ok {
			return err
		}
		var req renameRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "invalid request body")
		}

		doc, err := svc.Rename(c.UserContext(), id, req.Filename)
		switch {
		case err == nil:
			return c.JSON(doc)
		case errors.Is(err, service.ErrFilenameRequired):
			return writeError(c, fiber.StatusBadRequest, "FILENAME_REQUIRED", "filename is required")
		case isNotFound(err):
			return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
		default:
			return writeInternal(c, "rename_document", err)
		}
	}
}

// DownloadDocument returns a presigned URL for the document content.
//
//	@Summary	Get a download URL
//	@Tags		documents
//	@Produce	json
//	@Param		id	path		string	true	"Document ID (UUID)"
//	@Success	200	{object}	downloadResponse
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id}/download [get]
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := documentID(c)
		if !ok {
			return err
		}
		url, err := svc.DownloadURL(c.UserContext(), id)
		if err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeInternal(c, "download_document", err)
		}
		return c.JSON(downloadResponse{URL: url})
	}
}

// DeleteDocument removes the document content and metadata.
//
//	@Summary	Delete a document
//	@Tags		documents
//	@Param		id	path	string	true	"Document ID (UUID)"
//	@Success	204
//	@Failure	404	{object}	errorPayload
//	@Router		/documents/{id} [delete]
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok, err := documentID(c)
		if !ok {
			return err
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if isNotFound(err) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "document not found")
			}
			return writeInternal(c, "delete_document", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
