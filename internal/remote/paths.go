package remote

// Path is a booking service endpoint.
type Path string

const (
	PathCheckUserAuth          Path = "/aq-api/resources/476"
	PathBookDesk               Path = "/aq-api/reservations/events"
	PathGetDesk                Path = "/aq-api/reservations/views/floorplans/workspaces"
	PathGetReservation         Path = "/aq-api/reservations/views"
	PathChangeReservationState Path = "/aq-api/reservations/states"
	PathSearchUserByName       Path = "/aq-api/users/views/search/by-name"
	PathSearchUserByID         Path = "/aq-api/users/search"
	PathSearchUser             Path = "/aq-api/users/views"
)

// Credential header names expected by the booking service.
const (
	HeaderAppAuthToken  = "AQOB-AppAuthToken"
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "x-api-key"
)

// Credential is the three-token triple required on every call.
type Credential struct {
	AppAuthToken  string `json:"appAuthToken"`
	Authorization string `json:"authorization"`
	APIKey        string `json:"apiKey"`
}

// Valid reports whether all three tokens are present.
func (c Credential) Valid() bool {
	return c.AppAuthToken != "" && c.Authorization != "" && c.APIKey != ""
}

// Missing lists the header names of absent tokens.
func (c Credential) Missing() []string {
	var missing []string
	if c.AppAuthToken == "" {
		missing = append(missing, HeaderAppAuthToken)
	}
	if c.Authorization == "" {
		missing = append(missing, HeaderAuthorization)
	}
	if c.APIKey == "" {
		missing = append(missing, HeaderAPIKey)
	}
	return missing
}
