package mentorships

import (
	"context"
	"fmt"
	"strings"

	"github.com/yln-platform/mentorship-backend/internal/dualwrite"
	"github.com/yln-platform/mentorship-backend/pkg/enums"
	pkgerrors "github.com/yln-platform/mentorship-backend/pkg/errors"
	"github.com/yln-platform/mentorship-backend/pkg/logger"
)

// Service defines the pairing operations.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Pairing, error)
	Get(ctx context.Context, id int64) (*Pairing, error)
	GetForMentee(ctx context.Context, menteeID int64) (*PairingDetail, error)
	List(ctx context.Context) ([]*PairingDetail, error)
	Delete(ctx context.Context, id int64) error
}

type entityStore interface {
	Insert(ctx context.Context, entity enums.EntityType, payload dualwrite.Record) (dualwrite.Record, error)
	Delete(ctx context.Context, entity enums.EntityType, id int64) error
	Read(ctx context.Context, entity enums.EntityType, filter dualwrite.Filter) ([]dualwrite.Record, error)
}

type pairingNotifier interface {
	SendPairingNotification(ctx context.Context, to string, partnerName string) error
}

type service struct {
	store    entityStore
	notifier pairingNotifier
	logg     *logger.Logger
}

// ServiceParams bundles the dependencies required to build a mentorships
// service. Notifier is optional; without one no pairing mail goes out.
type ServiceParams struct {
	Store    entityStore
	Notifier pairingNotifier
	Logger   *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	return &service{store: params.Store, notifier: params.Notifier, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Pairing, error) {
	mentorRows, err := s.store.Read(ctx, enums.EntityMentors, dualwrite.Filter{"id": req.MentorID})
	if err != nil {
		return nil, err
	}
	if len(mentorRows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "mentor not found")
	}
	if !mentorRows[0].Bool("is_active") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mentor is not active")
	}

	menteeRows, err := s.store.Read(ctx, enums.EntityMentees, dualwrite.Filter{"id": req.MenteeID})
	if err != nil {
		return nil, err
	}
	if len(menteeRows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "mentee not found")
	}

	mentorPairings, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"mentor_id": req.MentorID})
	if err != nil {
		return nil, err
	}
	if len(mentorPairings) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "mentor is already paired")
	}
	menteePairings, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"mentee_id": req.MenteeID})
	if err != nil {
		return nil, err
	}
	if len(menteePairings) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "mentee is already paired")
	}

	record, err := s.store.Insert(ctx, enums.EntityMentorships, dualwrite.Record{
		"mentor_id": req.MentorID,
		"mentee_id": req.MenteeID,
	})
	if err != nil {
		return nil, err
	}

	s.notifyPairing(ctx, mentorRows[0], menteeRows[0])

	return FromRecord(record)
}

// notifyPairing mails both sides. Best effort: the pairing already
// exists, so delivery problems only get logged.
func (s *service) notifyPairing(ctx context.Context, mentor, mentee dualwrite.Record) {
	if s.notifier == nil {
		return
	}
	if to := mentor.String("email"); to != "" {
		if err := s.notifier.SendPairingNotification(ctx, to, fullName(mentee)); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "to", to), "pairing.notify_mentor_failed")
		}
	}
	if to := mentee.String("email"); to != "" {
		if err := s.notifier.SendPairingNotification(ctx, to, fullName(mentor)); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "to", to), "pairing.notify_mentee_failed")
		}
	}
}

func (s *service) Get(ctx context.Context, id int64) (*Pairing, error) {
	records, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "mentorship not found")
	}
	return FromRecord(records[0])
}

// GetForMentee returns the mentee's pairing with the mentor's contact
// details filled in, the view a mentee sees on their dashboard.
func (s *service) GetForMentee(ctx context.Context, menteeID int64) (*PairingDetail, error) {
	records, err := s.store.Read(ctx, enums.EntityMentorships, dualwrite.Filter{"mentee_id": menteeID})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no mentor assigned yet")
	}

	pairing, err := FromRecord(records[0])
	if err != nil {
		return nil, err
	}
	detail := &PairingDetail{Pairing: *pairing}
	s.fillNames(ctx, detail)
	return detail, nil
}

func (s *service) List(ctx context.Context) ([]*PairingDetail, error) {
	records, err := s.store.Read(ctx, enums.EntityMentorships, nil)
	if err != nil {
		return nil, err
	}

	mentorNames, mentorEmails := s.indexPeople(ctx, enums.EntityMentors)
	menteeNames, menteeEmails := s.indexPeople(ctx, enums.EntityMentees)

	out := make([]*PairingDetail, 0, len(records))
	for _, record := range records {
		pairing, err := FromRecord(record)
		if err != nil {
			return nil, err
		}
		detail := &PairingDetail{Pairing: *pairing}
		detail.MentorName = mentorNames[pairing.MentorID]
		detail.MentorEmail = mentorEmails[pairing.MentorID]
		detail.MenteeName = menteeNames[pairing.MenteeID]
		detail.MenteeEmail = menteeEmails[pairing.MenteeID]
		out = append(out, detail)
	}
	return out, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.store.Delete(ctx, enums.EntityMentorships, id)
}

// fillNames is best effort: listing a pairing still works when the
// profile rows cannot be read.
func (s *service) fillNames(ctx context.Context, detail *PairingDetail) {
	if rows, err := s.store.Read(ctx, enums.EntityMentors, dualwrite.Filter{"id": detail.MentorID}); err == nil && len(rows) > 0 {
		detail.MentorName = fullName(rows[0])
		detail.MentorEmail = rows[0].String("email")
	}
	if rows, err := s.store.Read(ctx, enums.EntityMentees, dualwrite.Filter{"id": detail.MenteeID}); err == nil && len(rows) > 0 {
		detail.MenteeName = fullName(rows[0])
		detail.MenteeEmail = rows[0].String("email")
	}
}

func (s *service) indexPeople(ctx context.Context, entity enums.EntityType) (map[int64]string, map[int64]string) {
	names := make(map[int64]string)
	emails := make(map[int64]string)
	rows, err := s.store.Read(ctx, entity, nil)
	if err != nil {
		return names, emails
	}
	for _, row := range rows {
		id, ok := row.ID()
		if !ok {
			continue
		}
		names[id] = fullName(row)
		emails[id] = row.String("email")
	}
	return names, emails
}

func fullName(record dualwrite.Record) string {
	return strings.TrimSpace(record.String("first_name") + " " + record.String("last_name"))
}
