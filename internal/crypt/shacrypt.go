package crypt

import (
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"hash"
	"strconv"
	"strings"
)

const (
	shaDefaultRounds = 5000
	shaMinRounds     = 1000
	shaMaxRounds     = 999999999
	shaMaxSaltLen    = 16
)

// ErrMalformedHash is returned when a "$5$"/"$6$" hash string is missing
// its salt or digest field.
var ErrMalformedHash = errors.New("crypt: malformed hash")

// shaParams holds the salt/rounds parsed out of a "$5$" or "$6$" hash.
type shaParams struct {
	salt            string
	rounds          int
	roundsSpecified bool
}

func parseShaParams(fullHash, id string) (shaParams, error) {
	rest := strings.TrimPrefix(fullHash, id)

	params := shaParams{rounds: shaDefaultRounds}

	if strings.HasPrefix(rest, "rounds=") {
		rest = rest[len("rounds="):]
		idx := strings.Index(rest, "$")
		if idx < 0 {
			return shaParams{}, ErrMalformedHash
		}
		n, err := strconv.Atoi(rest[:idx])
		if err != nil {
			return shaParams{}, ErrMalformedHash
		}
		if n < shaMinRounds {
			n = shaMinRounds
		}
		if n > shaMaxRounds {
			n = shaMaxRounds
		}
		params.rounds = n
		params.roundsSpecified = true
		rest = rest[idx+1:]
	}

	salt := rest
	if idx := strings.Index(rest, "$"); idx >= 0 {
		salt = rest[:idx]
	}
	if salt == "" {
		return shaParams{}, ErrMalformedHash
	}
	if len(salt) > shaMaxSaltLen {
		salt = salt[:shaMaxSaltLen]
	}
	params.salt = salt

	return params, nil
}

// shaCryptDigest implements the Drepper SHA-crypt key derivation shared by
// sha256-crypt and sha512-crypt, parameterized over the digest function.
func shaCryptDigest(newHash func() hash.Hash, hashLen int, password, salt string, rounds int) []byte {
	p := []byte(password)
	s := []byte(salt)

	hb := newHash()
	hb.Write(p)
	hb.Write(s)
	hb.Write(p)
	b := hb.Sum(nil)

	ha := newHash()
	ha.Write(p)
	ha.Write(s)
	ha.Write(b)

	for cnt := len(p); cnt > 0; cnt -= hashLen {
		if cnt > hashLen {
			ha.Write(b)
		} else {
			ha.Write(b[:cnt])
		}
	}

	for i := len(p); i > 0; i >>= 1 {
		if i&1 != 0 {
			ha.Write(b)
		} else {
			ha.Write(p)
		}
	}
	a := ha.Sum(nil)

	hdp := newHash()
	for i := 0; i < len(p); i++ {
		hdp.Write(p)
	}
	dp := hdp.Sum(nil)
	pSeq := repeatToLen(dp, len(p))

	hds := newHash()
	reps := 16 + int(a[0])
	for i := 0; i < reps; i++ {
		hds.Write(s)
	}
	ds := hds.Sum(nil)
	sSeq := repeatToLen(ds, len(s))

	for i := 0; i < rounds; i++ {
		hc := newHash()
		if i%2 != 0 {
			hc.Write(pSeq)
		} else {
			hc.Write(a)
		}
		if i%3 != 0 {
			hc.Write(sSeq)
		}
		if i%7 != 0 {
			hc.Write(pSeq)
		}
		if i%2 != 0 {
			hc.Write(a)
		} else {
			hc.Write(pSeq)
		}
		a = hc.Sum(nil)
	}

	return a
}

func repeatToLen(src []byte, n int) []byte {
	if n == 0 {
		return nil
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = src[i%len(src)]
	}
	return out
}

func formatShaHash(id string, p shaParams, encoded string) string {
	var sb strings.Builder
	sb.WriteString("$")
	sb.WriteString(id)
	sb.WriteString("$")
	if p.roundsSpecified {
		sb.WriteString("rounds=")
		sb.WriteString(strconv.Itoa(p.rounds))
		sb.WriteString("$")
	}
	sb.WriteString(p.salt)
	sb.WriteString("$")
	sb.WriteString(encoded)
	return sb.String()
}

func sha256Crypt(password, fullHash string) (string, error) {
	params, err := parseShaParams(fullHash, "$5$")
	if err != nil {
		return "", err
	}
	digest := shaCryptDigest(sha256.New, sha256.Size, password, params.salt, params.rounds)
	return formatShaHash("5", params, encodeSHA256(digest)), nil
}

func sha512Crypt(password, fullHash string) (string, error) {
	params, err := parseShaParams(fullHash, "$6$")
	if err != nil {
		return "", err
	}
	digest := shaCryptDigest(sha512.New, sha512.Size, password, params.salt, params.rounds)
	return formatShaHash("6", params, encodeSHA512(digest)), nil
}

func encodeSHA256(buf []byte) string {
	return b64From24bit(buf[0], buf[10], buf[20], 4) +
		b64From24bit(buf[21], buf[1], buf[11], 4) +
		b64From24bit(buf[12], buf[22], buf[2], 4) +
		b64From24bit(buf[3], buf[13], buf[23], 4) +
		b64From24bit(buf[24], buf[4], buf[14], 4) +
		b64From24bit(buf[15], buf[25], buf[5], 4) +
		b64From24bit(buf[6], buf[16], buf[26], 4) +
		b64From24bit(buf[27], buf[7], buf[17], 4) +
		b64From24bit(buf[18], buf[28], buf[8], 4) +
		b64From24bit(buf[9], buf[19], buf[29], 4) +
		b64From24bit(0, buf[31], buf[30], 3)
}

func encodeSHA512(buf []byte) string {
	return b64From24bit(buf[0], buf[21], buf[42], 4) +
		b64From24bit(buf[22], buf[43], buf[1], 4) +
		b64From24bit(buf[44], buf[2], buf[23], 4) +
		b64From24bit(buf[3], buf[24], buf[45], 4) +
		b64From24bit(buf[25], buf[46], buf[4], 4) +
		b64From24bit(buf[47], buf[5], buf[26], 4) +
		b64From24bit(buf[6], buf[27], buf[48], 4) +
		b64From24bit(buf[28], buf[49], buf[7], 4) +
		b64From24bit(buf[50], buf[8], buf[29], 4) +
		b64From24bit(buf[9], buf[30], buf[51], 4) +
		b64From24bit(buf[31], buf[52], buf[10], 4) +
		b64From24bit(buf[53], buf[11], buf[32], 4) +
		b64From24bit(buf[12], buf[33], buf[54], 4) +
		b64From24bit(buf[34], buf[55], buf[13], 4) +
		b64From24bit(buf[56], buf[14], buf[35], 4) +
		b64From24bit(buf[15], buf[36], buf[57], 4) +
		b64From24bit(buf[37], buf[58], buf[16], 4) +
		b64From24bit(buf[59], buf[17], buf[38], 4) +
		b64From24bit(buf[18], buf[39], buf[60], 4) +
		b64From24bit(buf[40], buf[61], buf[19], 4) +
		b64From24bit(buf[62], buf[20], buf[41], 4) +
		b64From24bit(0, 0, buf[63], 2)
}
