package services

import (
	"strings"

	"github.com/localnerve/jam-build-crm/internal/models"
	"github.com/localnerve/jam-build-crm/internal/mutation"
	"github.com/localnerve/jam-build-crm/internal/storage"
	"github.com/localnerve/jam-build-crm/internal/types"
)

// required returns the Required rule on create and nothing on edit, where empty fields
// keep their stored value.
func required(create bool, message string) []mutation.Rule {
	if create {
		return []mutation.Rule{mutation.Required(message)}
	}
	return nil
}

func rules(head []mutation.Rule, tail ...mutation.Rule) []mutation.Rule {
	return append(head, tail...)
}

// LeadInput is the body of lead create and edit requests. Service is a service id; on edit
// a nil Service keeps the stored link and an empty one clears it.
type LeadInput struct {
	Fullname   string  `json:"fullname"`
	Details    string  `json:"details"`
	Email      string  `json:"email"`
	Telephone  string  `json:"telephone"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	Company    string  `json:"company"`
	LeadSource string  `json:"leadSource"`
	Service    *string `json:"service"`
}

func (in LeadInput) schema(create bool) *mutation.Schema {
	return mutation.NewSchema().
		Field("fullname", in.Fullname, rules(required(create, "Lead fullname is required"), mutation.Length(4, 100))...).
		Field("message", in.Details, mutation.Length(4, 1000)).
		Field("email", in.Email, rules(required(create, "Lead email is required"), mutation.Length(4, 50), mutation.Email())...).
		Field("telephone number", in.Telephone, mutation.Length(3, 20)).
		Field("city", in.City, mutation.Length(4, 100)).
		Field("country", in.Country, rules(required(create, "Lead country is required"), mutation.Length(4, 60))...).
		Field("company", in.Company, mutation.Length(4, 100)).
		Field("lead source", in.LeadSource, mutation.OneOf(models.LeadSources...)).
		Field("service ID", deref(in.Service), mutation.ObjectID())
}

// ClientInput is the body of client create and edit requests. Clients are usually created
// by converting a lead.
type ClientInput struct {
	Fullname   string  `json:"fullname"`
	Details    string  `json:"details"`
	Email      string  `json:"email"`
	Telephone  string  `json:"telephone"`
	City       string  `json:"city"`
	Country    string  `json:"country"`
	Company    string  `json:"company"`
	LeadSource string  `json:"leadSource"`
	Service    *string `json:"service"`
}

func (in ClientInput) schema(create bool) *mutation.Schema {
	return mutation.NewSchema().
		Field("fullname", in.Fullname, rules(required(create, "Client fullname is required"), mutation.Length(4, 100))...).
		Field("details", in.Details, mutation.Length(4, 1000)).
		Field("email", in.Email, rules(required(create, "Client email is required"), mutation.Length(4, 50), mutation.Email())...).
		Field("telephone number", in.Telephone, mutation.Length(3, 20)).
		Field("city", in.City, mutation.Length(4, 100)).
		Field("country", in.Country, rules(required(create, "Client country is required"), mutation.Length(4, 60))...).
		Field("company", in.Company, mutation.Length(4, 100)).
		Field("lead source", in.LeadSource, mutation.OneOf(models.LeadSources...)).
		Field("service ID", deref(in.Service), mutation.ObjectID())
}

// ServiceInput is the body of service create and edit requests.
type ServiceInput struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

func (in ServiceInput) schema(create bool) *mutation.Schema {
	return mutation.NewSchema().
		Field("name", in.Name, rules(required(create, "Service name is required"), mutation.Length(4, 100))...).
		Field("details", in.Details, rules(required(create, "Service details are required"), mutation.Length(20, 1000))...)
}

// ServiceDetailInput is the body of service detail add and edit requests. Edits replace
// the whole item.
type ServiceDetailInput struct {
	Title   string `json:"title"`
	Details string `json:"details"`
	Image   string `json:"image"`
}

func (in ServiceDetailInput) schema() *mutation.Schema {
	return mutation.NewSchema().
		Field("title", in.Title, mutation.Required("Detail title is required"), mutation.Length(4, 100)).
		Field("details", in.Details, mutation.Required("Detail details is required"), mutation.Length(4, 1000))
}

func (in ServiceDetailInput) item(id types.ObjectID) models.ServiceDetail {
	return models.ServiceDetail{
		ID:      id,
		Title:   strings.TrimSpace(in.Title),
		Details: strings.TrimSpace(in.Details),
		Image:   strings.TrimSpace(in.Image),
	}
}

// ServiceRequirementInput is the body of service requirement add and edit requests.
type ServiceRequirementInput struct {
	Title   string `json:"title"`
	Details string `json:"details"`
}

func (in ServiceRequirementInput) schema() *mutation.Schema {
	return mutation.NewSchema().
		Field("title", in.Title, mutation.Required("Requirement title is required"), mutation.Length(4, 100)).
		Field("details", in.Details, mutation.Required("Requirement details is required"), mutation.Length(4, 1000))
}

func (in ServiceRequirementInput) item(id types.ObjectID) models.ServiceRequirement {
	return models.ServiceRequirement{
		ID:      id,
		Title:   strings.TrimSpace(in.Title),
		Details: strings.TrimSpace(in.Details),
	}
}

// MoneyInput is a price as sent by clients. A nil Amount is missing, not zero.
type MoneyInput struct {
	Amount   *float64 `json:"amount"`
	Currency string   `json:"currency"`
}

// ServicePriceInput is the body of service price add and edit requests.
type ServicePriceInput struct {
	Title     string      `json:"title"`
	ListItems []string    `json:"listItems"`
	Price     *MoneyInput `json:"price"`
}

func (in ServicePriceInput) schema() *mutation.Schema {
	s := mutation.NewSchema().
		Field("title", in.Title, mutation.Required("Price title is required"), mutation.Length(2, 100)).
		Check(len(trimAll(in.ListItems)) > 0, "Price listItems is required").
		Check(in.Price != nil, "Price is required")
	if in.Price != nil {
		s.Check(in.Price.Amount != nil && strings.TrimSpace(in.Price.Currency) != "", "Price must have amount and currency")
		s.Check(in.Price.Amount == nil || *in.Price.Amount >= 0, "Price amount cannot be negative")
	}
	return s
}

func (in ServicePriceInput) item(id types.ObjectID) models.ServicePrice {
	p := models.ServicePrice{ID: id, Title: strings.TrimSpace(in.Title), ListItems: trimAll(in.ListItems)}
	if in.Price != nil && in.Price.Amount != nil {
		p.Price = models.Money{Amount: *in.Price.Amount, Currency: strings.ToUpper(strings.TrimSpace(in.Price.Currency))}
	}
	return p
}

// ServiceFAQInput is the body of service faq add and edit requests. These answer questions
// about one service; the standalone faq resource covers the rest.
type ServiceFAQInput struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func (in ServiceFAQInput) schema() *mutation.Schema {
	return mutation.NewSchema().
		Field("question", in.Question, mutation.Required("FAQ question is required"), mutation.Length(4, 100)).
		Field("answer", in.Answer, mutation.Required("FAQ answer is required"), mutation.Length(4, 1000))
}

func (in ServiceFAQInput) item(id types.ObjectID) models.ServiceFAQ {
	return models.ServiceFAQ{
		ID:       id,
		Question: strings.TrimSpace(in.Question),
		Answer:   strings.TrimSpace(in.Answer),
	}
}

// BlogInput is the multipart body of blog create and edit requests. Thumbnail and Images
// are the uploaded files; Images[i] belongs to ContentBlocks[i] and may be nil.
type BlogInput struct {
	Title            string
	IntroDescription string
	ContentBlocks    []models.ContentBlock
	Tags             []string
	Thumbnail        *storage.File
	Images           []*storage.File
}

func (in BlogInput) schema(create bool) *mutation.Schema {
	s := mutation.NewSchema().
		Field("title", in.Title, mutation.Required("Title is required"), mutation.Length(4, 100)).
		Field("introDescription", in.IntroDescription, mutation.Required("Intro description is required"), mutation.Length(4, 1000)).
		Check(len(in.ContentBlocks) > 0, "Content blocks is required")
	if create {
		s.Check(in.Thumbnail != nil, "Thumbnail is required")
	}
	for _, block := range in.ContentBlocks {
		s.Field("title", block.Title, mutation.Required("Title is required"), mutation.Length(4, 100)).
			Field("details", block.Details, mutation.Required("Content details is required"), mutation.Length(20, 1000))
	}
	return s
}

// AnnouncementInput is the multipart body of announcement create and edit requests. A nil
// Active means true on create and unchanged on edit.
type AnnouncementInput struct {
	Title       string
	Description string
	Active      *bool
	Image       *storage.File
}

func (in AnnouncementInput) schema(create bool) *mutation.Schema {
	return mutation.NewSchema().
		Field("title", in.Title, rules(required(create, "Title is required"), mutation.Length(4, 100))...).
		Field("description", in.Description, rules(required(create, "Description is required"), mutation.Length(4, 1000))...)
}

// FAQInput is the body of faq create and edit requests.
type FAQInput struct {
	Question string  `json:"question"`
	Answer   string  `json:"answer"`
	Service  *string `json:"service"`
}

func (in FAQInput) schema(create bool) *mutation.Schema {
	return mutation.NewSchema().
		Field("question", in.Question, rules(required(create, "Question is required"), mutation.Length(4, 100))...).
		Field("answer", in.Answer, rules(required(create, "Answer is required"), mutation.Length(4, 1000))...).
		Field("service ID", deref(in.Service), mutation.ObjectID())
}

// RegisterInput is the body of the register request.
type RegisterInput struct {
	Fullname  string `json:"fullname"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	City      string `json:"city"`
	Country   string `json:"country"`
	Role      string `json:"role"`
	Password  string `json:"password"`
}

func (in RegisterInput) schema() *mutation.Schema {
	return mutation.NewSchema().
		Field("fullname", in.Fullname, mutation.Required("Fullname is required"), mutation.Length(5, 50)).
		Field("email", in.Email, mutation.Required("Email is required"), mutation.Length(5, 50), mutation.Email()).
		Field("role", in.Role, mutation.Required("User's role is required"), mutation.OneOf(models.RoleUser, models.RoleAdmin)).
		Field("password", in.Password, mutation.Required("Password is required")).
		Field("country", in.Country, mutation.Required("Country is required"), mutation.Length(4, 56)).
		Field("city", in.City, mutation.Length(2, 100)).
		Field("phone number", in.Telephone, mutation.Length(3, 15))
}

// UserEditInput is the body of the profile edit request. Empty fields are left unchanged.
type UserEditInput struct {
	Fullname  string `json:"fullname"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	City      string `json:"city"`
	Country   string `json:"country"`
}

func (in UserEditInput) schema() *mutation.Schema {
	return mutation.NewSchema().
		Field("fullname", in.Fullname, mutation.Length(5, 50)).
		Field("email", in.Email, mutation.Length(5, 50), mutation.Email()).
		Field("country", in.Country, mutation.Length(4, 56)).
		Field("city", in.City, mutation.Length(2, 100)).
		Field("phone number", in.Telephone, mutation.Length(3, 15))
}

// pick returns value trimmed, or current when value is blank.
func pick(current, value string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return current
}

// trimAll trims every value and drops the blank ones.
func trimAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// normalizeEmail is the stored form of lead and client emails.
func normalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// optional turns a trimmed blank value into nil.
func optional(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
