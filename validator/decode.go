package validator

import (
	"encoding/json"
	"errors"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
)

// tokenHeader is the part of the JOSE header the validator acts on. The kid
// lives here, not in the claim body.
type tokenHeader struct {
	alg jwa.SignatureAlgorithm
	kid string
}

// decodeHeaderAndClaims splits the token into its structural parts and
// parses header and claim segments without checking the signature. The raw
// claim map is returned alongside the registered claims so the caller can
// hand custom claims through untouched.
func decodeHeaderAndClaims(token string) (tokenHeader, TokenClaims, map[string]interface{}, error) {
	var hdr tokenHeader
	var claims TokenClaims

	msg, err := jws.ParseString(token)
	if err != nil {
		return hdr, claims, nil, err
	}

	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return hdr, claims, nil, errors.New("token carries no signature")
	}

	protected := sigs[0].ProtectedHeaders()
	hdr.alg = protected.Algorithm()
	hdr.kid = protected.KeyID()

	payload := msg.Payload()
	if err := json.Unmarshal(payload, &claims); err != nil {
		return hdr, claims, nil, err
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return hdr, claims, nil, err
	}

	return hdr, claims, raw, nil
}
