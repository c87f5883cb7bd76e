// internal/services/drive_service.go
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/cisnetsa/cisnet-backend/internal/apperrors"
	"github.com/cisnetsa/cisnet-backend/internal/config"
)

// GrantResult describes a successfully issued file permission.
type GrantResult struct {
	FileID       string `json:"file_id"`
	FileName     string `json:"file_name"`
	PermissionID string `json:"permission_id"`
	DownloadURL  string `json:"download_url"`
	ViewURL      string `json:"view_url"`
	Message      string `json:"message,omitempty"`
}

// DownloadResult points a purchaser at their file. When the file itself
// cannot be located, DownloadURL carries the shared folder and Message
// tells the buyer what to look for.
type DownloadResult struct {
	FileID      string `json:"file_id"`
	FileName    string `json:"file_name"`
	DownloadURL string `json:"download_url"`
	ViewURL     string `json:"view_url"`
	Message     string `json:"message,omitempty"`
}

// FileGrantProvider issues and manages per-user access to product files.
type FileGrantProvider interface {
	GrantAccess(ctx context.Context, userEmail, productID string) (*GrantResult, error)
	ResolveDownloadURL(ctx context.Context, productID, userEmail string) (*DownloadResult, error)
	CheckPermission(ctx context.Context, fileID, userEmail string) (bool, error)
	RevokeAccess(ctx context.Context, fileID, userEmail string) error
}

// productFileMapping ties catalog product IDs to file names inside the
// shared Drive folder.
var productFileMapping = map[string]string{
	"7":  "office365_v2024.zip",
	"8":  "photoshop_2024.zip",
	"9":  "vscode_latest.zip",
	"10": "windows11_pro.zip",
	"11": "autocad_2024.zip",
	"12": "minecraft_java.zip",
	"13": "norton360_deluxe.zip",
	"14": "zoom_pro.zip",
	"15": "adobe_creative_suite.zip",
	"16": "intellij_ultimate.zip",
	"17": "spotify_premium.zip",
	"18": "vmware_workstation.zip",
}

// DriveService manages product file access through Google Drive
// permissions. File IDs are resolved by name inside the configured folder
// and cached for the lifetime of the process.
type DriveService struct {
	svc      *drive.Service
	folderID string

	mu      sync.RWMutex
	fileIDs map[string]string // file name -> Drive file ID

	// lookup resolves a file name to a Drive file ID. Overridable in tests.
	lookup func(ctx context.Context, fileName string) (string, error)
}

func NewDriveService(cfg *config.Config) *DriveService {
	s := &DriveService{
		folderID: cfg.Drive.FolderID,
		fileIDs:  make(map[string]string),
	}
	s.lookup = s.lookupFileID

	if cfg.Drive.ServiceAccountFile == "" {
		logrus.Warn("Drive service account not configured, file grants will fail until set")
		return s
	}

	svc, err := drive.NewService(context.Background(),
		option.WithCredentialsFile(cfg.Drive.ServiceAccountFile),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		logrus.WithError(err).Error("Failed to initialize Drive client")
		return s
	}

	s.svc = svc
	return s
}

func (s *DriveService) FileNameForProduct(productID string) (string, bool) {
	name, ok := productFileMapping[productID]
	return name, ok
}

func (s *DriveService) GrantAccess(ctx context.Context, userEmail, productID string) (*GrantResult, error) {
	fileName, ok := productFileMapping[productID]
	if !ok {
		// Products without a dedicated file fall back to shared folder access.
		return s.grantFolderAccess(ctx, userEmail, productID)
	}

	fileID, err := s.resolveFileID(ctx, fileName)
	if err != nil {
		return nil, err
	}

	permissionID, err := s.createPermission(ctx, fileID, userEmail)
	if err != nil {
		return nil, err
	}

	return &GrantResult{
		FileID:       fileID,
		FileName:     fileName,
		PermissionID: permissionID,
		DownloadURL:  directDownloadURL(fileID),
		ViewURL:      viewURL(fileID),
	}, nil
}

func (s *DriveService) grantFolderAccess(ctx context.Context, userEmail, productID string) (*GrantResult, error) {
	if s.folderID == "" {
		return nil, apperrors.Newf(apperrors.KindIntegration, "no file mapping for product %s and no shared folder configured", productID)
	}

	permissionID, err := s.createPermission(ctx, s.folderID, userEmail)
	if err != nil {
		return nil, err
	}

	return &GrantResult{
		FileID:       s.folderID,
		FileName:     "shared-folder",
		PermissionID: permissionID,
		ViewURL:      folderURL(s.folderID),
		Message:      "Access granted to the shared download folder",
	}, nil
}

func (s *DriveService) ResolveDownloadURL(ctx context.Context, productID, userEmail string) (*DownloadResult, error) {
	fileName, ok := productFileMapping[productID]
	if !ok {
		return nil, apperrors.Newf(apperrors.KindNotFound, "no downloadable file for product %s", productID)
	}

	fileID, err := s.resolveFileID(ctx, fileName)
	if err != nil {
		if s.folderID == "" {
			return nil, err
		}
		logrus.WithError(err).WithField("file_name", fileName).Warn("Drive file lookup failed, returning shared folder link")
		return &DownloadResult{
			FileName:    fileName,
			DownloadURL: folderURL(s.folderID),
			ViewURL:     folderURL(s.folderID),
			Message:     fmt.Sprintf("Open the shared folder and look for %s", fileName),
		}, nil
	}

	hasAccess, err := s.CheckPermission(ctx, fileID, userEmail)
	if err != nil {
		return nil, err
	}
	if !hasAccess {
		return nil, apperrors.New(apperrors.KindForbidden, "file has not been shared with this account")
	}

	return &DownloadResult{
		FileID:      fileID,
		FileName:    fileName,
		DownloadURL: directDownloadURL(fileID),
		ViewURL:     viewURL(fileID),
	}, nil
}

func (s *DriveService) CheckPermission(ctx context.Context, fileID, userEmail string) (bool, error) {
	if s.svc == nil {
		return false, apperrors.New(apperrors.KindIntegration, "drive client not configured")
	}

	list, err := s.svc.Permissions.List(fileID).
		Fields("permissions(id, emailAddress, role)").
		Context(ctx).
		Do()
	if err != nil {
		return false, apperrors.Wrap(apperrors.KindIntegration, "failed to list file permissions", err)
	}

	for _, p := range list.Permissions {
		if p.EmailAddress != userEmail {
			continue
		}
		switch p.Role {
		case "reader", "writer", "owner":
			return true, nil
		}
	}

	return false, nil
}

func (s *DriveService) RevokeAccess(ctx context.Context, fileID, userEmail string) error {
	if s.svc == nil {
		return apperrors.New(apperrors.KindIntegration, "drive client not configured")
	}

	list, err := s.svc.Permissions.List(fileID).
		Fields("permissions(id, emailAddress)").
		Context(ctx).
		Do()
	if err != nil {
		return apperrors.Wrap(apperrors.KindIntegration, "failed to list file permissions", err)
	}

	for _, p := range list.Permissions {
		if p.EmailAddress != userEmail {
			continue
		}
		if err := s.svc.Permissions.Delete(fileID, p.Id).Context(ctx).Do(); err != nil {
			return apperrors.Wrap(apperrors.KindIntegration, "failed to delete file permission", err)
		}
		return nil
	}

	return apperrors.Newf(apperrors.KindNotFound, "no permission for %s on file %s", userEmail, fileID)
}

func (s *DriveService) createPermission(ctx context.Context, fileID, userEmail string) (string, error) {
	if s.svc == nil {
		return "", apperrors.New(apperrors.KindIntegration, "drive client not configured")
	}

	perm, err := s.svc.Permissions.Create(fileID, &drive.Permission{
		Type:         "user",
		Role:         "reader",
		EmailAddress: userEmail,
	}).
		SendNotificationEmail(false).
		Context(ctx).
		Do()
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIntegration, "failed to create file permission", err)
	}

	return perm.Id, nil
}

func (s *DriveService) resolveFileID(ctx context.Context, fileName string) (string, error) {
	s.mu.RLock()
	fileID, cached := s.fileIDs[fileName]
	s.mu.RUnlock()
	if cached {
		return fileID, nil
	}

	fileID, err := s.lookup(ctx, fileName)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.fileIDs[fileName] = fileID
	s.mu.Unlock()

	return fileID, nil
}

func (s *DriveService) lookupFileID(ctx context.Context, fileName string) (string, error) {
	if s.svc == nil {
		return "", apperrors.New(apperrors.KindIntegration, "drive client not configured")
	}

	query := fmt.Sprintf("name = '%s' and trashed = false", fileName)
	if s.folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", s.folderID)
	}

	list, err := s.svc.Files.List().
		Q(query).
		Fields("files(id, name)").
		PageSize(1).
		Context(ctx).
		Do()
	if err != nil {
		return "", apperrors.Wrap(apperrors.KindIntegration, "drive file lookup failed", err)
	}

	if len(list.Files) == 0 {
		return "", apperrors.Newf(apperrors.KindIntegration, "file %s not found in Drive folder", fileName)
	}

	return list.Files[0].Id, nil
}

func directDownloadURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
}

func viewURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", fileID)
}

func folderURL(folderID string) string {
	return fmt.Sprintf("https://drive.google.com/drive/folders/%s", folderID)
}
