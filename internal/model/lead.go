package model

// BusinessRecord is the central entity of a lead-generation run. It is created
// by the directory scraping stage and mutated in place by every later stage.
// Contact fields are optional and populated progressively; an empty string
// means "not found yet", never an error.
type BusinessRecord struct {
	ID          string `json:"id"`
	CompanyName string `json:"company_name"`
	Address     string `json:"address"`
	Website     string `json:"website,omitempty"`
	Phone       string `json:"phone,omitempty"`

	// ContactID is the people-search identifier of the contact selected for
	// this business. Set by contact resolution, consumed by enrichment.
	ContactID            string `json:"contact_id,omitempty"`
	ContactFirstName     string `json:"contact_first_name,omitempty"`
	ContactLastName      string `json:"contact_last_name,omitempty"`
	ContactTitle         string `json:"contact_title,omitempty"`
	ContactPersonalEmail string `json:"contact_personal_email,omitempty"`
	ContactLinkedInURL   string `json:"contact_linkedin_url,omitempty"`
	ContactGeneralEmail  string `json:"contact_general_email,omitempty"`
}

// HasAnyEmail reports whether the record carries a personal or general
// contact email. Records without one fall through to the website crawler.
func (r *BusinessRecord) HasAnyEmail() bool {
	return r.ContactPersonalEmail != "" || r.ContactGeneralEmail != ""
}

// SubArea is a resolved geographic unit used as a unit of work for the
// directory scraper fan-out. Ephemeral: it never outlives area resolution.
type SubArea struct {
	Name string `json:"name"`
}

// RecordSet is the working set of business records flowing through the
// pipeline. Each stage consumes and re-persists the full set; ownership is
// passed stage to stage rather than shared through closures.
type RecordSet struct {
	Records []BusinessRecord `json:"records"`
}

// Len returns the number of records in the set.
func (s *RecordSet) Len() int { return len(s.Records) }
