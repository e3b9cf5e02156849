package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var pw = PasswordRange{Min: 3, Max: 64}

func TestSignUpSchema(t *testing.T) {
	schema := SignUp(pw, []string{"image/jpeg", "image/png"})
	avatar := File{Filename: "me.png", ContentType: "image/png", Size: 10}

	tests := []struct {
		name    string
		payload Payload
		want    Errors
	}{
		{
			name:    "valid",
			payload: Payload{"email": "a@b.com", "password": "secret1", "avatar": avatar},
			want:    nil,
		},
		{
			name:    "everything missing reports every field",
			payload: Payload{},
			want:    Errors{"email": ReasonRequired, "password": ReasonRequired, "avatar": ReasonRequired},
		},
		{
			name:    "bad email and short password",
			payload: Payload{"email": "nope", "password": "ab", "avatar": avatar},
			want:    Errors{"email": ReasonEmail, "password": ReasonLengthInRange},
		},
		{
			name:    "avatar type not allowed",
			payload: Payload{"email": "a@b.com", "password": "secret1", "avatar": File{Filename: "x.gif", ContentType: "image/gif"}},
			want:    Errors{"avatar": ReasonIsIn},
		},
		{
			name:    "wrong type",
			payload: Payload{"email": 42, "password": "secret1", "avatar": "not-a-file"},
			want:    Errors{"email": ReasonType, "avatar": ReasonType},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.Validate(tt.payload))
		})
	}
}

func TestPasswordLengthBoundaries(t *testing.T) {
	schema := SignIn(pw)
	base := func(p string) Payload { return Payload{"email": "a@b.com", "password": p} }

	assert.Nil(t, schema.Validate(base("abc")))
	assert.Nil(t, schema.Validate(base(string(make([]rune, 64)))))
	assert.Equal(t, Errors{"password": ReasonLengthInRange}, schema.Validate(base("ab")))
	long := make([]byte, 65)
	for i := range long {
		long[i] = 'x'
	}
	assert.Equal(t, Errors{"password": ReasonLengthInRange}, schema.Validate(base(string(long))))
}

func TestNotifySchema(t *testing.T) {
	schema := Notify()

	assert.Nil(t, schema.Validate(Payload{"username": "a,b,,", "message": "hi"}))
	assert.Nil(t, schema.Validate(Payload{"username": []any{"alice", "bob", ""}, "message": "hi"}))
	assert.Equal(t, Errors{"username": ReasonNotEmpty, "message": ReasonNotEmpty},
		schema.Validate(Payload{"username": ",,", "message": "  "}))
	assert.Equal(t, Errors{"username": ReasonRequired},
		schema.Validate(Payload{"message": "hi"}))
	assert.Equal(t, Errors{"username": ReasonType},
		schema.Validate(Payload{"username": []any{"alice", 3}, "message": "hi"}))
}

func TestValidateDoesNotMutatePayload(t *testing.T) {
	list := []any{"alice", "bob"}
	p := Payload{"username": list, "message": "hi"}
	Notify().Validate(p)
	assert.Equal(t, []any{"alice", "bob"}, p["username"])
	assert.Len(t, p, 2)
}

func TestStrings(t *testing.T) {
	got, ok := Strings("a,b,,")
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "", ""}, got)

	_, ok = Strings(12)
	assert.False(t, ok)
}
