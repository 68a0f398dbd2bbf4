package service

import (
	"fmt"

	"homologador/internal/core"
)

// ErrPermissionDenied is returned when the acting user's role does not
// allow the attempted operation. The denial itself is audited.
var ErrPermissionDenied = fmt.Errorf("permission denied")

// HomologationService orchestrates homologation CRUD: role checks, the
// actual repository call, and exactly one audit entry with before/after
// snapshots per successful mutation.
type HomologationService struct {
	repo  core.HomologationRepository
	audit *AuditLogger
}

func NewHomologationService(repo core.HomologationRepository, audit *AuditLogger) *HomologationService {
	return &HomologationService{repo: repo, audit: audit}
}

const homologationsTable = "homologations"

func (s *HomologationService) Create(h *core.Homologation, actor *core.User, ipAddress *string) (int64, error) {
	if err := s.checkPermission(actor, "create", ipAddress); err != nil {
		return 0, err
	}

	h.CreatedBy = actor.ID
	id, err := s.repo.Create(h)
	if err != nil {
		return 0, err
	}

	table := homologationsTable
	s.audit.Log(core.AuditLogEntry{
		UserID:    &actor.ID,
		Action:    ActionCreate,
		TableName: &table,
		RecordID:  &id,
		NewValues: snapshotHomologation(h),
		IPAddress: ipAddress,
	})
	return id, nil
}

func (s *HomologationService) Get(id int64, actor *core.User, ipAddress *string) (*core.Homologation, error) {
	if err := s.checkPermission(actor, "read", ipAddress); err != nil {
		return nil, err
	}
	return s.repo.GetByID(id)
}

func (s *HomologationService) List(actor *core.User, ipAddress *string, filters ...core.Filter) ([]core.Homologation, error) {
	if err := s.checkPermission(actor, "read", ipAddress); err != nil {
		return nil, err
	}
	return s.repo.GetAll(filters...)
}

func (s *HomologationService) Search(term string, actor *core.User, ipAddress *string) ([]core.Homologation, error) {
	if err := s.checkPermission(actor, "read", ipAddress); err != nil {
		return nil, err
	}
	return s.repo.Search(term)
}

func (s *HomologationService) Update(id int64, fields core.FieldMap, actor *core.User, ipAddress *string) (bool, error) {
	if err := s.checkPermission(actor, "update", ipAddress); err != nil {
		return false, err
	}

	before, err := s.repo.GetByID(id)
	if err != nil {
		return false, err
	}
	if before == nil {
		return false, nil
	}

	ok, err := s.repo.Update(id, fields)
	if err != nil || !ok {
		return ok, err
	}

	table := homologationsTable
	s.audit.Log(core.AuditLogEntry{
		UserID:    &actor.ID,
		Action:    ActionUpdate,
		TableName: &table,
		RecordID:  &id,
		OldValues: snapshotHomologation(before),
		NewValues: fields,
		IPAddress: ipAddress,
	})
	return true, nil
}

func (s *HomologationService) Delete(id int64, actor *core.User, ipAddress *string) (bool, error) {
	if err := s.checkPermission(actor, "delete", ipAddress); err != nil {
		return false, err
	}

	before, err := s.repo.GetByID(id)
	if err != nil {
		return false, err
	}
	if before == nil {
		return false, nil
	}

	ok, err := s.repo.Delete(id)
	if err != nil || !ok {
		return ok, err
	}

	table := homologationsTable
	s.audit.Log(core.AuditLogEntry{
		UserID:    &actor.ID,
		Action:    ActionDelete,
		TableName: &table,
		RecordID:  &id,
		OldValues: snapshotHomologation(before),
		IPAddress: ipAddress,
	})
	return true, nil
}

func (s *HomologationService) checkPermission(actor *core.User, action string, ipAddress *string) error {
	if actor == nil {
		return ErrPermissionDenied
	}
	if !HasPermission(actor.Role, action) {
		s.audit.LogPermissionDenied(actor.ID, action, homologationsTable, ipAddress)
		return fmt.Errorf("%w: role %s cannot %s homologations", ErrPermissionDenied, actor.Role, action)
	}
	return nil
}

func snapshotHomologation(h *core.Homologation) core.FieldMap {
	m := core.FieldMap{
		"real_name":             h.RealName,
		"kb_sync":               h.KBSync,
		"has_previous_versions": h.HasPreviousVersions,
		"status":                h.Status,
		"created_by":            h.CreatedBy,
	}
	if h.LogicalName != nil {
		m["logical_name"] = *h.LogicalName
	}
	if h.KBURL != nil {
		m["kb_url"] = *h.KBURL
	}
	if h.HomologationDate != nil {
		m["homologation_date"] = *h.HomologationDate
	}
	if h.RepositoryLocation != nil {
		m["repository_location"] = *h.RepositoryLocation
	}
	if h.Details != nil {
		m["details"] = *h.Details
	}
	return m
}
