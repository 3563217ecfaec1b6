package ldmodel

import "encoding/json"

// User is the end-user description passed to Evaluate. Key is mandatory;
// everything else is optional. Represented as a typed struct with known
// built-in fields plus an open Custom map, per the duck-typed-mapping ->
// typed-model design note.
type User struct {
	Key                  string
	Secondary            string
	IP                   string
	Country              string
	Email                string
	FirstName            string
	LastName             string
	Avatar               string
	Name                 string
	Anonymous            bool
	Custom               map[string]Value
	PrivateAttributeNames []string
}

// GetAttribute resolves an attribute name to a Value, checking the built-in
// fields first and falling back to Custom. Returns ok=false if the
// attribute is entirely unset, which callers treat as a clause miss.
func (u *User) GetAttribute(name string) (Value, bool) {
	switch name {
	case "key":
		if u.Key == "" {
			return Value{}, false
		}
		return String(u.Key), true
	case "secondary":
		if u.Secondary == "" {
			return Value{}, false
		}
		return String(u.Secondary), true
	case "ip":
		if u.IP == "" {
			return Value{}, false
		}
		return String(u.IP), true
	case "country":
		if u.Country == "" {
			return Value{}, false
		}
		return String(u.Country), true
	case "email":
		if u.Email == "" {
			return Value{}, false
		}
		return String(u.Email), true
	case "firstName":
		if u.FirstName == "" {
			return Value{}, false
		}
		return String(u.FirstName), true
	case "lastName":
		if u.LastName == "" {
			return Value{}, false
		}
		return String(u.LastName), true
	case "avatar":
		if u.Avatar == "" {
			return Value{}, false
		}
		return String(u.Avatar), true
	case "name":
		if u.Name == "" {
			return Value{}, false
		}
		return String(u.Name), true
	case "anonymous":
		return Bool(u.Anonymous), true
	default:
		if u.Custom == nil {
			return Value{}, false
		}
		v, ok := u.Custom[name]
		return v, ok
	}
}

// builtinAttrNames lists the attribute names resolved directly from struct
// fields, used by the privacy transform to tell "built-in" from "custom".
var builtinAttrNames = map[string]bool{
	"key": true, "secondary": true, "ip": true, "country": true,
	"email": true, "firstName": true, "lastName": true, "avatar": true,
	"name": true, "anonymous": true,
}

func IsBuiltinAttribute(name string) bool { return builtinAttrNames[name] }

// userJSON mirrors the wire shape of a user for custom (un)marshaling,
// needed because Custom is flattened and Value implements its own codec.
type userJSON struct {
	Key                   string             `json:"key"`
	Secondary             string             `json:"secondary,omitempty"`
	IP                    string             `json:"ip,omitempty"`
	Country               string             `json:"country,omitempty"`
	Email                 string             `json:"email,omitempty"`
	FirstName             string             `json:"firstName,omitempty"`
	LastName              string             `json:"lastName,omitempty"`
	Avatar                string             `json:"avatar,omitempty"`
	Name                  string             `json:"name,omitempty"`
	Anonymous             bool               `json:"anonymous,omitempty"`
	Custom                map[string]Value   `json:"custom,omitempty"`
	PrivateAttributeNames []string           `json:"privateAttributeNames,omitempty"`
}

func (u User) MarshalJSON() ([]byte, error) {
	return json.Marshal(userJSON{
		Key: u.Key, Secondary: u.Secondary, IP: u.IP, Country: u.Country,
		Email: u.Email, FirstName: u.FirstName, LastName: u.LastName,
		Avatar: u.Avatar, Name: u.Name, Anonymous: u.Anonymous,
		Custom: u.Custom, PrivateAttributeNames: u.PrivateAttributeNames,
	})
}

func (u *User) UnmarshalJSON(data []byte) error {
	var j userJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	*u = User{
		Key: j.Key, Secondary: j.Secondary, IP: j.IP, Country: j.Country,
		Email: j.Email, FirstName: j.FirstName, LastName: j.LastName,
		Avatar: j.Avatar, Name: j.Name, Anonymous: j.Anonymous,
		Custom: j.Custom, PrivateAttributeNames: j.PrivateAttributeNames,
	}
	return nil
}
