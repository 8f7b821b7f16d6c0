package genesys

// Address media and subtype values the audit cares about.
const (
	MediaTypePhone  = "PHONE"
	AddressTypeWork = "WORK"
)

// OwnerTypeUser is the extension owner type for user-owned extensions.
const OwnerTypeUser = "USER"

// User is a platform directory user. Version is a monotonically increasing
// counter the API requires on every PATCH to detect stale writes.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	State     string    `json:"state"`
	Version   int       `json:"version"`
	Addresses []Address `json:"addresses"`
}

// Address is one contact entry on a user. Only PHONE-media addresses carry
// an extension of interest.
type Address struct {
	MediaType string `json:"mediaType"`
	Type      string `json:"type"`
	Extension string `json:"extension,omitempty"`
	Address   string `json:"address,omitempty"`
}

// Extension is a telephony extension registry record binding a number to an
// owner within a pool.
type Extension struct {
	ID        string `json:"id"`
	Number    string `json:"number"`
	OwnerType string `json:"ownerType"`
	Owner     *Ref   `json:"owner"`
	Pool      *Ref   `json:"extensionPool"`
}

// Ref is a reference to another entity by id.
type Ref struct {
	ID string `json:"id"`
}

// pagedResponse mirrors the platform API paged collection envelope.
type pagedResponse[T any] struct {
	Entities  []T `json:"entities"`
	PageCount int `json:"pageCount"`
}

// userPatch is the PATCH body for updating a user's addresses. The full
// addresses list is resubmitted along with the expected next version.
type userPatch struct {
	Addresses []Address `json:"addresses"`
	Version   int       `json:"version"`
}
