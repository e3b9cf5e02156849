package validation

// Field names shared by the HTTP payloads.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldAvatar   = "avatar"
	FieldUsername = "username"
	FieldMessage  = "message"
)

// PasswordRange bounds the password length.
type PasswordRange struct {
	Min int
	Max int
}

// SignUp is the registration schema.
func SignUp(pw PasswordRange, avatarTypes []string) Schema {
	return Schema{
		{Field: FieldEmail, Kind: KindString, Required: true, Email: true},
		{Field: FieldPassword, Kind: KindString, Required: true, MinLen: pw.Min, MaxLen: pw.Max},
		{Field: FieldAvatar, Kind: KindFile, Required: true, OneOf: avatarTypes},
	}
}

// SignIn is the login schema.
func SignIn(pw PasswordRange) Schema {
	return Schema{
		{Field: FieldEmail, Kind: KindString, Required: true, Email: true},
		{Field: FieldPassword, Kind: KindString, Required: true, MinLen: pw.Min, MaxLen: pw.Max},
	}
}

// Notify is the fan-out request schema.
func Notify() Schema {
	return Schema{
		{Field: FieldUsername, Kind: KindStrings, Required: true, NonEmpty: true},
		{Field: FieldMessage, Kind: KindString, Required: true, NonEmpty: true},
	}
}
