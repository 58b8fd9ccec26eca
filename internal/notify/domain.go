package notify

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/localnerve/jam-build-crm/internal/types"
)

// Domain names the collection a notification refers to. Only the constants below are
// valid; scanning or decoding any other name fails.
type Domain string

const (
	DomainUser         Domain = "User"
	DomainLead         Domain = "Lead"
	DomainClient       Domain = "Client"
	DomainService      Domain = "Service"
	DomainBlog         Domain = "Blog"
	DomainAnnouncement Domain = "Announcement"
	DomainFAQ          Domain = "FAQ"
	DomainFile         Domain = "File"
)

var domains = map[Domain]struct{}{
	DomainUser:         {},
	DomainLead:         {},
	DomainClient:       {},
	DomainService:      {},
	DomainBlog:         {},
	DomainAnnouncement: {},
	DomainFAQ:          {},
	DomainFile:         {},
}

// ParseDomain accepts exactly the known domain names.
func ParseDomain(s string) (Domain, error) {
	d := Domain(s)
	if _, ok := domains[d]; !ok {
		return "", types.ValidationError(fmt.Sprintf("%s is not supported", s))
	}
	return d, nil
}

// Valid reports whether d is a known domain.
func (d Domain) Valid() bool {
	_, ok := domains[d]
	return ok
}

func (d Domain) Value() (driver.Value, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("notify: invalid domain %q", string(d))
	}
	return string(d), nil
}

func (d *Domain) Scan(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("notify: unsupported domain scan type %T", value)
	}
	parsed, err := ParseDomain(s)
	if err != nil {
		return fmt.Errorf("notify: invalid domain %q", s)
	}
	*d = parsed
	return nil
}

func (d *Domain) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDomain(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Ref points a notification at one document, or at a whole domain when the id is unset.
// The fields are unexported so a Ref is only built by the constructors below.
type Ref struct {
	domain Domain
	id     types.ObjectID
}

func (r Ref) Domain() Domain { return r.domain }
func (r Ref) ID() types.ObjectID { return r.id }
func (r Ref) IsZero() bool { return r.domain == "" }
func (r Ref) String() string { return fmt.Sprintf("%s(%s)", r.domain, r.id) }

func UserRef(id types.ObjectID) Ref { return Ref{domain: DomainUser, id: id} }
func LeadRef(id types.ObjectID) Ref { return Ref{domain: DomainLead, id: id} }
func ClientRef(id types.ObjectID) Ref { return Ref{domain: DomainClient, id: id} }
func ServiceRef(id types.ObjectID) Ref { return Ref{domain: DomainService, id: id} }
func BlogRef(id types.ObjectID) Ref { return Ref{domain: DomainBlog, id: id} }
func AnnouncementRef(id types.ObjectID) Ref { return Ref{domain: DomainAnnouncement, id: id} }
func FAQRef(id types.ObjectID) Ref { return Ref{domain: DomainFAQ, id: id} }

// FileRef refers to the storage domain; files have no document id.
func FileRef() Ref { return Ref{domain: DomainFile} }

// DomainRef refers to a domain as a whole, used by bulk operations.
func DomainRef(d Domain) (Ref, error) {
	if !d.Valid() {
		return Ref{}, types.ValidationError(fmt.Sprintf("%s is not supported", string(d)))
	}
	return Ref{domain: d}, nil
}
