package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"xupload/internal/domain/album"
	"xupload/internal/domain/upload"
	"xupload/internal/metrics"
	"xupload/internal/repository"
	"xupload/internal/storage"
	xupload_errors "xupload/pkg/errors"
	"xupload/pkg/logger"
)

// Outcome of an upload that got past validation.
type Outcome string

const (
	// OutcomeComplete: stored locally, recorded and pushed to object storage.
	OutcomeComplete Outcome = "complete"
	// OutcomePartial: stored locally and recorded, but the remote push failed.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed: a filesystem, database or thumbnail step failed.
	OutcomeFailed Outcome = "failed"
)

// SyncStatus is the widget-facing form of the outcome.
func (o Outcome) SyncStatus() string {
	if o == OutcomeComplete {
		return "complete"
	}
	return "pending"
}

const subfolderLayout = "01022006"

// Thumbnailer writes a thumbnail of src to dst.
type Thumbnailer interface {
	Generate(src, dst string) error
}

type UploadOptions struct {
	BasePath        string
	Rules           upload.Rules
	ContentType     string
	SetProfileImage bool
}

type UploadService struct {
	albums   repository.AlbumRepository
	profiles repository.ProfileRepository
	sessions *SessionFiles
	storage  storage.ObjectStorage
	thumbs   Thumbnailer
	events   *EventPublisher
	metrics  *metrics.Metrics
	opts     UploadOptions
	log      *logger.Logger
	now      func() time.Time
}

func NewUploadService(
	albums repository.AlbumRepository,
	profiles repository.ProfileRepository,
	sessions *SessionFiles,
	store storage.ObjectStorage,
	thumbs Thumbnailer,
	events *EventPublisher,
	m *metrics.Metrics,
	opts UploadOptions,
) *UploadService {
	if opts.ContentType == "" {
		opts.ContentType = "image/jpeg"
	}
	return &UploadService{
		albums:   albums,
		profiles: profiles,
		sessions: sessions,
		storage:  store,
		thumbs:   thumbs,
		events:   events,
		metrics:  m,
		opts:     opts,
		log:      logger.GetGlobalLogger(),
		now:      time.Now,
	}
}

// ValidationError carries field-level messages for the widget.
type ValidationError struct {
	Errors map[string][]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", xupload_errors.ErrValidation, e.Errors)
}

func (e *ValidationError) Is(target error) bool {
	return target == xupload_errors.ErrValidation
}

type UploadInput struct {
	Identity Identity
	// Subfolder is the caller-requested folder, empty for the date default.
	Subfolder string
	File      *multipart.FileHeader
}

type UploadResult struct {
	Name         string
	Type         string
	Size         int64
	Filename     string
	Folder       string
	URL          string
	ThumbnailURL string
	Outcome      Outcome
}

// subfolder returns requested when it is a safe single path segment,
// otherwise today's date as mmddyyyy.
func (s *UploadService) subfolder(requested string) string {
	if requested != "" && isSafeName(requested) {
		return requested
	}
	return s.now().Format(subfolderLayout)
}

// Upload validates the file, records it and pushes original and thumbnail
// to object storage. Nothing written before a hard failure is rolled back.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	start := time.Now()

	if in.File == nil {
		s.metrics.ObserveUpload(string(OutcomeFailed), time.Since(start))
		return nil, xupload_errors.ErrMissingFile
	}

	form := upload.NewForm(in.File)
	if !form.Validate(s.opts.Rules) {
		s.metrics.ObserveUpload("invalid", time.Since(start))
		return nil, &ValidationError{Errors: form.ErrorMap()}
	}

	res, err := s.store(ctx, in, form)
	if err != nil {
		s.metrics.ObserveUpload(string(OutcomeFailed), time.Since(start))
		s.log.Error(ctx, "upload failed", zap.String("file", form.DisplayName), zap.Error(err))
		return nil, err
	}
	s.metrics.ObserveUpload(string(res.Outcome), time.Since(start))
	return res, nil
}

func (s *UploadService) store(ctx context.Context, in UploadInput, form *upload.Form) (*UploadResult, error) {
	id := in.Identity
	folder := s.subfolder(in.Subfolder)
	dir := filepath.Join(s.opts.BasePath, folder)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", xupload_errors.ErrFilesystem, dir, err)
	}

	ext := form.Extension()
	a := &album.Album{
		UserID:      id.UserID,
		ProfileID:   id.ProfileID,
		ImageName:   album.ProvisionalImageName(id.UserID, id.ProfileID, ext),
		ImageFolder: folder,
	}
	if err := s.albums.Insert(ctx, a); err != nil {
		return nil, err
	}
	filename := album.FinalImageName(a.ID, id.UserID, id.ProfileID, ext)
	if err := s.albums.UpdateImageName(ctx, a.ID, filename); err != nil {
		return nil, err
	}
	a.ImageName = filename

	localPath := filepath.Join(dir, filename)
	thumbPath := filepath.Join(dir, storage.ThumbPrefix+filename)
	if err := saveUploadedFile(in.File, localPath); err != nil {
		return nil, err
	}

	outcome := OutcomeComplete
	if err := s.push(ctx, localPath, storage.ObjectKey(folder, filename)); err != nil {
		if errors.Is(err, xupload_errors.ErrFilesystem) {
			return nil, err
		}
		outcome = OutcomePartial
		s.log.Warn(ctx, "push original failed", zap.String("filename", filename), zap.Error(err))
	}

	if err := s.thumbs.Generate(localPath, thumbPath); err != nil {
		return nil, err
	}
	if err := s.push(ctx, thumbPath, storage.ThumbKey(folder, filename)); err != nil {
		if errors.Is(err, xupload_errors.ErrFilesystem) {
			return nil, err
		}
		outcome = OutcomePartial
		s.log.Warn(ctx, "push thumbnail failed", zap.String("filename", filename), zap.Error(err))
	}

	record := upload.SessionFile{
		Path:     localPath,
		Thumb:    thumbPath,
		Filename: filename,
		Size:     form.Size,
		Mime:     form.MimeType,
		Name:     form.DisplayName,
		Folder:   folder,
	}
	if err := s.sessions.Record(ctx, id.SessionID, record); err != nil {
		return nil, fmt.Errorf("record session file: %w", err)
	}

	if s.opts.SetProfileImage {
		s.promoteProfileImage(ctx, id, *a)
	}

	res := &UploadResult{
		Name:         form.DisplayName,
		Type:         form.MimeType,
		Size:         form.Size,
		Filename:     filename,
		Folder:       folder,
		URL:          s.storage.PublicURL(storage.ObjectKey(folder, filename)),
		ThumbnailURL: s.storage.PublicURL(storage.ThumbKey(folder, filename)),
		Outcome:      outcome,
	}

	s.events.Publish(ctx, id.UserID, EventFileUploaded, FileEventData{
		Name:         res.Name,
		Filename:     res.Filename,
		Folder:       res.Folder,
		URL:          res.URL,
		ThumbnailURL: res.ThumbnailURL,
		SyncStatus:   outcome.SyncStatus(),
	})

	s.log.Info(ctx, "file uploaded",
		zap.String("filename", filename),
		zap.String("folder", folder),
		zap.Int64("size", form.Size),
		zap.String("outcome", string(outcome)))
	return res, nil
}

func (s *UploadService) push(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", xupload_errors.ErrFilesystem, localPath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: stat %s: %w", xupload_errors.ErrFilesystem, localPath, err)
	}
	return s.storage.PutObject(ctx, key, f, info.Size(), s.opts.ContentType)
}

func (s *UploadService) promoteProfileImage(ctx context.Context, id Identity, a album.Album) {
	kind := album.OwnerKindFor(id.ProfileID)
	promoted, err := s.profiles.PromoteIfEmpty(ctx, kind, id.UserID, a)
	switch {
	case errors.Is(err, xupload_errors.ErrNotFound):
		s.log.Info(ctx, "no owner row for profile image", zap.String("owner", string(kind)))
	case err != nil:
		s.log.Warn(ctx, "set profile image failed", zap.String("owner", string(kind)), zap.Error(err))
	case promoted:
		s.log.Info(ctx, "profile image set", zap.String("owner", string(kind)), zap.String("image", a.ProfileImagePath()))
	}
}

type DeleteInput struct {
	Identity  Identity
	Filename  string
	Subfolder string
}

// Delete removes a file the caller uploaded in this session. It reports
// whether the local thumbnail was removed. The remote delete is attempted
// for every well-formed name, even when the session store fails; unknown
// files target the requested name in Subfolder.
func (s *UploadService) Delete(ctx context.Context, in DeleteInput) (bool, error) {
	id := in.Identity
	folder, filename := s.subfolder(in.Subfolder), in.Filename
	success := false
	var sessionErr, dbErr error

	if isSafeName(in.Filename) {
		// fn may run again when the store retries a conflicting write.
		thumbRemoved := false
		err := s.sessions.Update(ctx, id.SessionID, func(files upload.SessionFiles, exists bool) (bool, error) {
			success = false
			rec, ok := files[in.Filename]
			if !exists || !ok {
				return false, nil
			}
			folder, filename = rec.Folder, rec.Filename

			if !thumbRemoved {
				if _, err := os.Stat(rec.Thumb); err != nil {
					return false, nil
				}
				if err := os.Remove(rec.Thumb); err != nil {
					s.log.Warn(ctx, "remove thumbnail failed", zap.String("path", rec.Thumb), zap.Error(err))
					return false, nil
				}
				thumbRemoved = true
				if rec.Path != "" {
					if err := os.Remove(rec.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
						s.log.Warn(ctx, "remove original failed", zap.String("path", rec.Path), zap.Error(err))
					}
				}
			}
			success = true
			delete(files, in.Filename)
			return true, nil
		})
		if err != nil {
			success = false
			sessionErr = fmt.Errorf("update session files: %w", err)
		}
	}

	if success {
		dbErr = s.albums.DeleteByImageName(ctx, filename)
		if errors.Is(dbErr, xupload_errors.ErrNotFound) {
			s.log.Warn(ctx, "album row already gone", zap.String("filename", filename))
			dbErr = nil
		}
	}

	// Unsafe names never reach the bucket: path cleaning would let them escape the folder.
	if isSafeName(filename) {
		if err := s.storage.DeleteObjects(ctx, storage.ObjectKey(folder, filename), storage.ThumbKey(folder, filename)); err != nil {
			s.log.Warn(ctx, "remote delete failed",
				zap.String("folder", folder),
				zap.String("filename", filename),
				zap.Error(err))
		}
	}

	if err := errors.Join(sessionErr, dbErr); err != nil {
		s.metrics.ObserveDelete(false)
		return false, err
	}

	s.metrics.ObserveDelete(success)
	if success {
		s.events.Publish(ctx, id.UserID, EventFileDeleted, FileEventData{Filename: filename, Folder: folder})
	}
	return success, nil
}

// isSafeName accepts a single path segment that is not hidden.
func isSafeName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, `/\`)
}

func saveUploadedFile(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("%w: open upload: %w", xupload_errors.ErrFilesystem, err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o666)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", xupload_errors.ErrFilesystem, dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("%w: write %s: %w", xupload_errors.ErrFilesystem, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", xupload_errors.ErrFilesystem, dst, err)
	}
	return nil
}
