package hubspot

// companyProperties is the property set requested on every company read.
var companyProperties = []string{
	"name",
	"domain",
	"phone",
	"website",
	"address",
	"city",
	"state",
	"zip",
	"country",
	"plaza",
	"agente",
	"id_hotel",
	"id_tripadvisor",
	"booking_url",
	"market_fit",
	"tipo_de_empresa",
	"cantidad_de_habitaciones",
	"lifecyclestage",
}

// CompanyProperties is the subset of CRM company fields this service reads
// and writes.
type CompanyProperties struct {
	Name                   string `json:"name,omitempty"`
	Domain                 string `json:"domain,omitempty"`
	Phone                  string `json:"phone,omitempty"`
	Website                string `json:"website,omitempty"`
	Address                string `json:"address,omitempty"`
	City                   string `json:"city,omitempty"`
	State                  string `json:"state,omitempty"`
	Zip                    string `json:"zip,omitempty"`
	Country                string `json:"country,omitempty"`
	Plaza                  string `json:"plaza,omitempty"`
	Agente                 string `json:"agente,omitempty"`
	IDHotel                string `json:"id_hotel,omitempty"`
	IDTripAdvisor          string `json:"id_tripadvisor,omitempty"`
	BookingURL             string `json:"booking_url,omitempty"`
	MarketFit              string `json:"market_fit,omitempty"`
	TipoDeEmpresa          string `json:"tipo_de_empresa,omitempty"`
	CantidadDeHabitaciones string `json:"cantidad_de_habitaciones,omitempty"`
	Lifecyclestage         string `json:"lifecyclestage,omitempty"`
}

// Company is a CRM company record.
type Company struct {
	ID         string            `json:"id"`
	Properties CompanyProperties `json:"properties"`
}

// ContactProperties is the subset of CRM contact fields used for calls and
// decision-maker upserts.
type ContactProperties struct {
	Firstname   string `json:"firstname,omitempty"`
	Lastname    string `json:"lastname,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	MobilePhone string `json:"mobilephone,omitempty"`
	JobTitle    string `json:"jobtitle,omitempty"`
}

// Contact is a CRM contact record.
type Contact struct {
	ID         string            `json:"id"`
	Properties ContactProperties `json:"properties"`
}

// Engagement is a generic associated CRM object (note, email, call,
// communication) whose properties are read as free-form strings.
type Engagement struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// LeadProperties is the subset of CRM lead fields used for qualification.
type LeadProperties struct {
	LeadName        string `json:"hs_lead_name,omitempty"`
	PipelineStage   string `json:"hs_pipeline_stage,omitempty"`
	HubspotOwnerID  string `json:"hubspot_owner_id,omitempty"`
}

// Lead is a CRM lead record.
type Lead struct {
	ID         string         `json:"id"`
	Properties LeadProperties `json:"properties"`
}

// Task is a CRM task record with free-form properties.
type Task struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}
