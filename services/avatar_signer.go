package services

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// UploadSignature is what a browser needs to upload straight to Cloudinary.
type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
	PublicID  string `json:"public_id"`
}

// AvatarSigner signs direct avatar uploads. Files never pass through the API.
type AvatarSigner struct {
	cld    *cloudinary.Cloudinary
	folder string
	now    func() time.Time
}

func NewAvatarSigner(cloudinaryURL, folder string) (*AvatarSigner, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return &AvatarSigner{cld: cld, folder: folder, now: time.Now}, nil
}

func avatarPublicID(userID uuid.UUID) string {
	return "avatar_" + userID.String()
}

// Sign pins the upload to the user's own public id so one user cannot
// overwrite another user's avatar.
func (s *AvatarSigner) Sign(userID uuid.UUID) (*UploadSignature, error) {
	params, err := api.StructToParams(uploader.UploadParams{
		Folder:   s.folder,
		PublicID: avatarPublicID(userID),
	})
	if err != nil {
		return nil, fmt.Errorf("prepare signature params: %w", err)
	}

	timestamp := s.now().Unix()
	params.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(params, s.cld.Config.Cloud.APISecret)
	if err != nil {
		return nil, fmt.Errorf("sign upload params: %w", err)
	}

	return &UploadSignature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    s.cld.Config.Cloud.APIKey,
		CloudName: s.cld.Config.Cloud.CloudName,
		Folder:    s.folder,
		PublicID:  avatarPublicID(userID),
	}, nil
}

// OwnsURL reports whether raw is a delivery URL for the user's signed upload.
func (s *AvatarSigner) OwnsURL(raw string, userID uuid.UUID) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" || u.Host != "res.cloudinary.com" {
		return false
	}
	if !strings.HasPrefix(u.Path, "/"+s.cld.Config.Cloud.CloudName+"/image/upload/") {
		return false
	}
	return strings.Contains(u.Path, "/"+s.folder+"/"+avatarPublicID(userID)+".")
}
