package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bychung/snusv-angel-club-sub002/internal/docgen"
	"github.com/bychung/snusv-angel-club-sub002/internal/domain"
	"github.com/bychung/snusv-angel-club-sub002/internal/logging"
	"github.com/bychung/snusv-angel-club-sub002/internal/repository"
)

const (
	defaultNoticeWindowDays = 7

	noticeSubjectTemplate = "[{{fundName}}] {{assemblyKind}} Notice"
	noticeBodyTemplate    = "Dear {{memberName}},\n\n" +
		"The {{assemblyKind}} of {{fundName}} will be held on {{scheduledAt}} at {{location}}.\n\n" +
		"Agenda:\n{{agenda}}\n\n" +
		"{{gpName}}"
)

// Service sends assembly notice emails to fund members.
type Service struct {
	assemblies repository.AssemblyRepository
	funds      repository.FundRepository
	profiles   repository.ProfileRepository
	mailer     Mailer

	windowDays int
	now        func() time.Time
	log        *logging.Logger
}

type Option func(*Service)

// WithNoticeWindow sets how many days ahead the due sweep looks.
func WithNoticeWindow(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.windowDays = days
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
	assemblies repository.AssemblyRepository,
	funds repository.FundRepository,
	profiles repository.ProfileRepository,
	mailer Mailer,
	opts ...Option,
) *Service {
	service := &Service{
		assemblies: assemblies,
		funds:      funds,
		profiles:   profiles,
		mailer:     mailer,
		windowDays: defaultNoticeWindowDays,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// RecipientError reports one member whose notice could not be delivered.
type RecipientError struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// NoticeResult summarizes one assembly notice run.
type NoticeResult struct {
	AssemblyID uuid.UUID        `json:"assemblyId"`
	Recipients int              `json:"recipients"`
	Sent       int              `json:"sent"`
	Failed     []RecipientError `json:"failed,omitempty"`
}

// SendAssemblyNotice emails every member of the assembly's fund. Delivery
// failures are collected per recipient rather than aborting the run; the
// assembly is marked NOTIFIED as soon as at least one notice went out.
func (s *Service) SendAssemblyNotice(ctx context.Context, assemblyID uuid.UUID) (NoticeResult, error) {
	result := NoticeResult{AssemblyID: assemblyID}

	assembly, err := s.assemblies.GetByID(ctx, assemblyID)
	if err != nil {
		return result, err
	}
	if assembly.Status != domain.AssemblyStatusScheduled {
		return result, fmt.Errorf("assembly in status %s cannot be notified", assembly.Status)
	}

	fund, err := s.funds.GetByID(ctx, assembly.FundID)
	if err != nil {
		return result, fmt.Errorf("failed to load fund: %w", err)
	}
	members, err := s.funds.ListMembers(ctx, assembly.FundID)
	if err != nil {
		return result, fmt.Errorf("failed to list members: %w", err)
	}

	vars := map[string]any{
		"fundName":     fund.Name,
		"gpName":       fund.GPName,
		"assemblyKind": kindLabel(assembly.Kind),
		"scheduledAt":  assembly.ScheduledAt.Format("2006-01-02 15:04"),
		"location":     assembly.Location,
		"agenda":       assembly.Agenda,
	}
	subject, err := docgen.RenderText(noticeSubjectTemplate, vars)
	if err != nil {
		return result, fmt.Errorf("failed to render subject: %w", err)
	}

	for _, member := range members {
		profile, profileErr := s.profiles.GetByID(ctx, member.ProfileID)
		if profileErr != nil {
			if !errors.Is(profileErr, repository.ErrNotFound) && s.log != nil {
				s.log.Warn("failed to resolve member profile", "profile_id", member.ProfileID, "error", profileErr)
			}
			continue
		}
		result.Recipients++

		vars["memberName"] = profile.Name
		body, renderErr := docgen.RenderText(noticeBodyTemplate, vars)
		if renderErr != nil {
			return result, fmt.Errorf("failed to render body: %w", renderErr)
		}

		msg := Message{
			To:      []EmailAddress{{Email: profile.Email, Name: profile.Name}},
			Subject: subject,
			Text:    body,
		}
		if sendErr := s.mailer.Send(ctx, msg); sendErr != nil {
			result.Failed = append(result.Failed, RecipientError{Email: profile.Email, Message: sendErr.Error()})
			if s.log != nil {
				s.log.Warn("assembly notice delivery failed",
					"assembly_id", assemblyID, "email", profile.Email, "error", sendErr)
			}
			continue
		}
		result.Sent++
	}

	if result.Sent > 0 {
		notified := assembly.WithNotified(s.now())
		if _, err := s.assemblies.Update(ctx, notified); err != nil {
			return result, fmt.Errorf("failed to mark assembly notified: %w", err)
		}
	}

	if s.log != nil {
		s.log.Info("assembly notice run finished",
			"assembly_id", assemblyID, "recipients", result.Recipients,
			"sent", result.Sent, "failed", len(result.Failed))
	}
	return result, nil
}

// RunDueSweep sends notices for every scheduled assembly inside the notice
// window. A failing assembly is logged and skipped so the sweep covers the
// rest.
func (s *Service) RunDueSweep(ctx context.Context) (int, error) {
	due, err := s.assemblies.ListDue(ctx, s.windowDays)
	if err != nil {
		return 0, fmt.Errorf("failed to list due assemblies: %w", err)
	}

	notified := 0
	for _, assembly := range due {
		if _, err := s.SendAssemblyNotice(ctx, assembly.ID); err != nil {
			if s.log != nil {
				s.log.Error("due sweep failed for assembly", "assembly_id", assembly.ID, "error", err)
			}
			continue
		}
		notified++
	}
	return notified, nil
}

func kindLabel(kind domain.AssemblyKind) string {
	switch kind {
	case domain.AssemblyKindFormation:
		return "Formation Assembly"
	case domain.AssemblyKindGeneral:
		return "General Assembly"
	case domain.AssemblyKindDissolution:
		return "Dissolution Assembly"
	default:
		return "Assembly"
	}
}
