// files.go — обработчики /files: загрузка, выборка, метаданные,
// скачивание и удаление.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	apierrors "github.com/bigkaa/goartstore/intake-module/internal/api/errors"
	"github.com/bigkaa/goartstore/intake-module/internal/api/generated"
	"github.com/bigkaa/goartstore/intake-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/intake-module/internal/domain/model"
	"github.com/bigkaa/goartstore/intake-module/internal/service"
)

// Сообщения ответа загрузки, которые читает фронтенд.
const (
	msgFileUploaded  = "File uploaded"
	msgDuplicateFile = "Duplicate file"
	msgNoFile        = "No file provided"
)

// errNoFilePart — в multipart нет поля file с именем файла.
var errNoFilePart = errors.New("поле file не найдено")

// UploadFile обрабатывает POST /files.
// Поле file читается потоком из multipart без буферизации на диск.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	part, err := filePart(r)
	if err != nil {
		if isTooLarge(err) {
			apierrors.FileTooLarge(w, "Файл превышает допустимый размер")
			return
		}
		if !errors.Is(err, errNoFilePart) {
			h.logger.Debug("Некорректный multipart", slog.String("error", err.Error()))
		}
		apierrors.ValidationError(w, msgNoFile)
		return
	}
	defer part.Close()

	result, err := h.ingest.Ingest(r.Context(), service.IngestParams{
		Owner:            middleware.OwnerFromContext(r.Context()),
		OriginalFilename: part.FileName(),
		ContentType:      part.Header.Get("Content-Type"),
		Content:          &sizeLimitedReader{r: part, remaining: h.maxFileSize, limit: h.maxFileSize},
	})
	if err != nil {
		switch {
		case isTooLarge(err):
			apierrors.FileTooLarge(w, "Файл превышает допустимый размер")
		case errors.Is(err, service.ErrValidation):
			apierrors.ValidationError(w, err.Error())
		default:
			h.logger.Error("Ошибка загрузки файла",
				slog.String("filename", part.FileName()),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Внутренняя ошибка при сохранении файла")
		}
		return
	}

	resp := generated.UploadResponse{
		Duplicate:    result.Duplicate,
		File:         toAPIRecord(r, result.Record),
		SavedStorage: result.SavedBytes,
	}
	status := http.StatusCreated
	resp.Message = msgFileUploaded
	if result.Duplicate {
		status = http.StatusOK
		resp.Message = msgDuplicateFile
	}
	writeJSON(w, status, resp)
}

// filePart возвращает первую часть multipart с полем file и непустым именем файла.
func filePart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil, errNoFilePart
		}
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" && part.FileName() != "" {
			return part, nil
		}
		_ = part.Close()
	}
}

// sizeLimitedReader возвращает *http.MaxBytesError, если содержимое длиннее limit.
type sizeLimitedReader struct {
	r         io.Reader
	remaining int64
	limit     int64
}

func (l *sizeLimitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, &http.MaxBytesError{Limit: l.limit}
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	if int64(n) > l.remaining {
		n = int(l.remaining)
		l.remaining = -1
		return n, &http.MaxBytesError{Limit: l.limit}
	}
	l.remaining -= int64(n)
	return n, err
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// ListFiles обрабатывает GET /files.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request, params generated.ListFilesParams) {
	records, err := h.query.List(r.Context(), service.ListParams{
		Filename:       deref(params.Filename),
		FileType:       deref(params.FileType),
		SizeMin:        deref(params.SizeMin),
		SizeMax:        deref(params.SizeMax),
		UploadedAfter:  deref(params.UploadedAfter),
		UploadedBefore: deref(params.UploadedBefore),
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка выборки файлов", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка при выборке файлов")
		return
	}

	items := make([]generated.FileRecord, 0, len(records))
	for _, rec := range records {
		items = append(items, toAPIRecord(r, rec))
	}
	writeJSON(w, http.StatusOK, items)
}

// GetFile обрабатывает GET /files/{id}.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request, id generated.FileId) {
	record, err := h.query.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.Error("Ошибка получения метаданных файла",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при получении метаданных файла")
		return
	}
	writeJSON(w, http.StatusOK, toAPIRecord(r, record))
}

// DownloadFile обрабатывает GET /files/{id}/content.
// Range и If-None-Match обрабатываются http.ServeContent; ETag — хэш содержимого.
func (h *APIHandler) DownloadFile(w http.ResponseWriter, r *http.Request, id generated.FileId) {
	record, rc, err := h.download.Open(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Файл не найден")
			return
		}
		h.logger.Error("Ошибка открытия файла",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка при чтении файла")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", record.ContentType)
	w.Header().Set("ETag", `"`+record.ContentHash+`"`)
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": record.OriginalFilename}))

	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, "", record.UploadedAt, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(record.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("Передача файла прервана",
			slog.String("file_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// DeleteFile обрабатывает DELETE /files/{id}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request, id generated.FileId) {
	err := h.deletion.Delete(r.Context(), id)
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if errors.Is(err, service.ErrNotFound) {
		apierrors.NotFound(w, "Файл не найден")
		return
	}

	var de *service.DeleteError
	if errors.As(err, &de) && de.Stage == service.DeleteStageRecord {
		apierrors.InternalError(w, "Содержимое удалено, запись удалить не удалось")
		return
	}
	h.logger.Error("Ошибка удаления файла",
		slog.String("file_id", id),
		slog.String("error", err.Error()),
	)
	apierrors.InternalError(w, "Внутренняя ошибка при удалении файла")
}

// toAPIRecord преобразует запись в API-формат; file — абсолютный URL содержимого.
func toAPIRecord(r *http.Request, rec *model.FileRecord) generated.FileRecord {
	return generated.FileRecord{
		Id:               rec.ID,
		Owner:            rec.Owner,
		OriginalFilename: rec.OriginalFilename,
		FileType:         rec.ContentType,
		Size:             rec.Size,
		Hash:             rec.ContentHash,
		UploadedAt:       rec.UploadedAt,
		File:             contentURL(r, rec.ID),
	}
}

// contentURL строит URL содержимого с учётом префикса запроса и прокси.
func contentURL(r *http.Request, id string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	prefix := ""
	if middleware.HasAPIPrefix(r.URL.Path) {
		prefix = middleware.APIPrefix
	}
	return scheme + "://" + r.Host + prefix + "/files/" + id + "/content"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
