package export

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/logging"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

const registerSheet = "Members"

// Service builds the member register workbook for a fund and hands out
// short-lived signed download links for the generated files.
type Service struct {
	funds    repository.FundRepository
	profiles repository.ProfileRepository

	exportDir string
	now       func() time.Time
	log       *logging.Logger

	downloadSigner *downloadSigner
}

type Option func(*Service)

func WithExportDirectory(dir string) Option {
	return func(s *Service) {
		if strings.TrimSpace(dir) != "" {
			s.exportDir = filepath.Clean(dir)
		}
	}
}

// WithDownloadTokenTTL customizes the TTL for generated download links.
func WithDownloadTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.downloadSigner.ttl = ttl
		}
	}
}

// WithSignSecret replaces the per-process random signing secret so links
// survive restarts and load-balanced deployments.
func WithSignSecret(secret string) Option {
	return func(s *Service) {
		if strings.TrimSpace(secret) != "" {
			s.downloadSigner.secret = []byte(secret)
		}
	}
}

func WithLogger(log *logging.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(
	funds repository.FundRepository,
	profiles repository.ProfileRepository,
	opts ...Option,
) *Service {
	service := &Service{
		funds:          funds,
		profiles:       profiles,
		exportDir:      filepath.Join(os.TempDir(), "angel-club-exports"),
		now:            time.Now,
		downloadSigner: newDownloadSigner(5 * time.Minute),
	}
	for _, opt := range opts {
		opt(service)
	}
	if strings.TrimSpace(service.exportDir) == "" {
		service.exportDir = filepath.Join(os.TempDir(), "angel-club-exports")
	}
	if service.now == nil {
		service.now = time.Now
	}
	return service
}

// RegisterFile describes a generated member register workbook.
type RegisterFile struct {
	FileName    string `json:"fileName"`
	Rows        int    `json:"rows"`
	ByteSize    int64  `json:"byteSize"`
	DownloadURL string `json:"downloadUrl"`
}

// BuildMemberRegister renders the member register workbook for a fund: a fund
// header block followed by one row per member, ordered as stored. The file is
// written under the export directory and addressed by a signed link.
func (s *Service) BuildMemberRegister(ctx context.Context, fundID uuid.UUID) (RegisterFile, error) {
	if fundID == uuid.Nil {
		return RegisterFile{}, errors.New("fund id is required")
	}
	fund, err := s.funds.GetByID(ctx, fundID)
	if err != nil {
		return RegisterFile{}, err
	}
	members, err := s.funds.ListMembers(ctx, fundID)
	if err != nil {
		return RegisterFile{}, fmt.Errorf("failed to list members: %w", err)
	}
	if err := s.ensureExportDirectory(); err != nil {
		return RegisterFile{}, err
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()
	if err := f.SetSheetName(f.GetSheetName(0), registerSheet); err != nil {
		return RegisterFile{}, fmt.Errorf("failed to name sheet: %w", err)
	}

	setRow := func(row int, values []any) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return f.SetSheetRow(registerSheet, cell, &values)
	}

	formed := ""
	if fund.FormedAt != nil {
		formed = fund.FormedAt.Format("2006-01-02")
	}
	headerBlock := [][]any{
		{"Fund", fund.Name},
		{"General Partner", fund.GPName},
		{"Total Cap Amount", fund.TotalCapAmount},
		{"Par Value", fund.ParValue},
		{"Formation Date", formed},
		{"Member Count", len(members)},
		{},
		{"No", "Name", "Email", "Phone", "Units", "Amount", "Address", "Registration Number"},
	}
	for i, values := range headerBlock {
		if err := setRow(i+1, values); err != nil {
			return RegisterFile{}, fmt.Errorf("failed to write header block: %w", err)
		}
	}

	tableStart := len(headerBlock) + 1
	for i, member := range members {
		name, email, phone := s.memberContact(ctx, member)
		values := []any{
			i + 1,
			name,
			email,
			phone,
			member.InvestmentUnits,
			member.InvestmentAmount,
			member.Address,
			member.RegistrationNumber,
		}
		if err := setRow(tableStart+i, values); err != nil {
			return RegisterFile{}, fmt.Errorf("failed to write member row: %w", err)
		}
	}

	if err := f.SetColWidth(registerSheet, "B", "C", 24); err != nil {
		return RegisterFile{}, fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(registerSheet, "G", "H", 28); err != nil {
		return RegisterFile{}, fmt.Errorf("failed to set column width: %w", err)
	}

	fileName := fmt.Sprintf("%s-members-%s.xlsx", sanitizeFileComponent(fund.Name), s.now().Format("20060102-150405"))
	finalPath := filepath.Join(s.exportDir, fileName)
	if err := f.SaveAs(finalPath); err != nil {
		return RegisterFile{}, fmt.Errorf("failed to save workbook: %w", err)
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return RegisterFile{}, fmt.Errorf("failed to stat workbook: %w", err)
	}

	download := s.buildDownloadURL(fileName)
	if s.log != nil {
		s.log.Info("member register exported", "fund_id", fundID, "file", fileName, "rows", len(members))
	}
	return RegisterFile{
		FileName:    fileName,
		Rows:        len(members),
		ByteSize:    info.Size(),
		DownloadURL: download,
	}, nil
}

// memberContact resolves the profile behind a membership. A missing profile
// leaves the contact columns blank rather than failing the whole register.
func (s *Service) memberContact(ctx context.Context, member domain.FundMember) (name, email, phone string) {
	profile, err := s.profiles.GetByID(ctx, member.ProfileID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) && s.log != nil {
			s.log.Warn("failed to resolve member profile", "profile_id", member.ProfileID, "error", err)
		}
		return "", "", ""
	}
	return profile.Name, profile.Email, profile.Phone
}

func (s *Service) buildDownloadURL(fileName string) string {
	token := s.downloadSigner.Sign(fileName, s.now())
	values := url.Values{}
	values.Set("token", token)
	return fmt.Sprintf("/api/v1/exports/files/%s?%s", fileName, values.Encode())
}

// ValidateDownloadToken ensures the token is valid for the given file.
func (s *Service) ValidateDownloadToken(fileName, token string) error {
	return s.downloadSigner.Verify(fileName, token, s.now())
}

// OpenFile opens a generated register for streaming to the client. The name
// is reduced to its base component so tokens cannot address paths outside the
// export directory.
func (s *Service) OpenFile(fileName string) (*os.File, error) {
	base := filepath.Base(strings.TrimSpace(fileName))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return nil, errors.New("file name is required")
	}
	file, err := os.Open(filepath.Join(s.exportDir, base))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	return file, nil
}

func (s *Service) ensureExportDirectory() error {
	if strings.TrimSpace(s.exportDir) == "" {
		return errors.New("export directory is not configured")
	}
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure export directory: %w", err)
	}
	return nil
}

func sanitizeFileComponent(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	builder := strings.Builder{}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z':
			builder.WriteRune(r)
		case r >= '0' && r <= '9':
			builder.WriteRune(r)
		case r == '-' || r == '_':
			builder.WriteRune(r)
		case r == ' ':
			builder.WriteRune('-')
		default:
			builder.WriteRune('-')
		}
	}
	result := builder.String()
	result = strings.Trim(result, "-")
	for strings.Contains(result, "--") {
		result = strings.ReplaceAll(result, "--", "-")
	}
	if result == "" {
		return "fund"
	}
	return result
}

type downloadSigner struct {
	secret []byte
	ttl    time.Duration
}

func newDownloadSigner(ttl time.Duration) *downloadSigner {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &downloadSigner{secret: []byte(uuid.New().String()), ttl: ttl}
}

func (s *downloadSigner) Sign(fileName string, now time.Time) string {
	expires := now.Add(s.ttl).Unix()
	payload := fmt.Sprintf("%s:%d", fileName, expires)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	signature := hex.EncodeToString(mac.Sum(nil))
	raw := fmt.Sprintf("%s:%s", payload, signature)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (s *downloadSigner) Verify(fileName, token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("missing download token")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return fmt.Errorf("failed to decode token: %w", err)
	}
	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return errors.New("invalid token format")
	}
	if parts[0] != fileName {
		return errors.New("token does not match file")
	}
	expires, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid token expiration: %w", err)
	}
	if now.Unix() > expires {
		return errors.New("download token expired")
	}
	payload := fmt.Sprintf("%s:%s", parts[0], parts[1])
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	expected := mac.Sum(nil)
	provided, err := hex.DecodeString(parts[2])
	if err != nil {
		return fmt.Errorf("invalid token signature: %w", err)
	}
	if !hmac.Equal(expected, provided) {
		return errors.New("invalid download token")
	}
	return nil
}
