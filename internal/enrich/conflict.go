package enrich

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hotelbdd/agente-bdd/pkg/hubspot"
)

var (
	conflictIDRE = regexp.MustCompile(`(?i)(?:object|record|company)\D{0,40}?(\d{5,})`)
	digitRunRE   = regexp.MustCompile(`\d{5,}`)
)

// ExtractConflictID pulls the id of the record that already holds a
// conflicting unique value out of the CRM error message. Returns "" when no
// id can be found.
func ExtractConflictID(message string) string {
	if m := conflictIDRE.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	return digitRunRE.FindString(message)
}

// SameEntity reports whether two company records plausibly describe the same
// hotel: one name contains the other and both city and country match, all
// case-insensitive.
func SameEntity(a, b hubspot.CompanyProperties) bool {
	nameA := strings.ToLower(strings.TrimSpace(a.Name))
	nameB := strings.ToLower(strings.TrimSpace(b.Name))
	if nameA == "" || nameB == "" {
		return false
	}
	if !strings.Contains(nameA, nameB) && !strings.Contains(nameB, nameA) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.City), strings.TrimSpace(b.City)) &&
		strings.EqualFold(strings.TrimSpace(a.Country), strings.TrimSpace(b.Country))
}

// Resolver recovers from unique-value conflicts when writing company
// updates. Duplicates of the same hotel get merged; anything else just loses
// the conflicting field. Resolution failures degrade to dropping the field,
// never to failing the enrichment.
type Resolver struct {
	crm hubspot.Client
}

// NewResolver creates a conflict resolver over the CRM client.
func NewResolver(crm hubspot.Client) *Resolver {
	return &Resolver{crm: crm}
}

// UpdateCompany applies the property updates, resolving a unique-value
// conflict if one comes back. It reports whether a duplicate record was
// merged into this one.
func (r *Resolver) UpdateCompany(ctx context.Context, company hubspot.Company, updates map[string]string) (merged bool, err error) {
	if len(updates) == 0 {
		return false, nil
	}

	err = r.crm.UpdateCompany(ctx, company.ID, updates)
	var conflict *hubspot.ConflictError
	if !eris.As(err, &conflict) {
		return false, err
	}

	logger := zap.L().With(
		zap.String("company_id", company.ID),
		zap.String("property", conflict.Property),
	)
	logger.Warn("unique value conflict on company update", zap.String("message", conflict.Message))

	if otherID := r.tryMergeDuplicate(ctx, company, conflict, logger); otherID != "" {
		if retryErr := r.crm.UpdateCompany(ctx, company.ID, updates); retryErr == nil {
			r.note(ctx, company.ID, fmt.Sprintf(
				"Registro duplicado detectado: la empresa %s se fusionó con este registro.", otherID), logger)
			return true, nil
		}
		logger.Warn("update still failing after duplicate merge")
	}

	// Last resort: give up on the conflicting field and keep the rest. When
	// the CRM message does not name the field, the place id is the only
	// unique property this flow force-writes.
	property := conflict.Property
	if property == "" {
		property = "id_hotel"
	}
	delete(updates, property)
	r.note(ctx, company.ID, fmt.Sprintf(
		"Conflicto de valor único en el campo %s: el campo se omitió en la actualización.", property), logger)
	if len(updates) == 0 {
		return false, nil
	}
	return false, r.crm.UpdateCompany(ctx, company.ID, updates)
}

// note records the resolution decision on the company, best-effort.
func (r *Resolver) note(ctx context.Context, companyID, body string, logger *zap.Logger) {
	if err := r.crm.CreateNote(ctx, companyID, body); err != nil {
		logger.Warn("could not create conflict note", zap.Error(err))
	}
}

// tryMergeDuplicate returns the merged record's id, or "" when the conflict
// was not a mergeable duplicate.
func (r *Resolver) tryMergeDuplicate(ctx context.Context, company hubspot.Company, conflict *hubspot.ConflictError, logger *zap.Logger) string {
	otherID := ExtractConflictID(conflict.Message)
	if otherID == "" || otherID == company.ID {
		return ""
	}

	other, err := r.crm.GetCompany(ctx, otherID)
	if err != nil {
		logger.Warn("could not fetch conflicting company", zap.String("other_id", otherID), zap.Error(err))
		return ""
	}
	if !SameEntity(company.Properties, other.Properties) {
		logger.Info("conflicting company is a different entity, dropping field",
			zap.String("other_id", otherID),
			zap.String("other_name", other.Properties.Name),
		)
		return ""
	}

	if err := r.crm.MergeCompanies(ctx, company.ID, otherID); err != nil {
		logger.Warn("duplicate merge failed", zap.String("other_id", otherID), zap.Error(err))
		return ""
	}
	logger.Info("merged duplicate company", zap.String("other_id", otherID))
	return otherID
}
