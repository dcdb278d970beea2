package crypt

import "crypto/md5"

// md5Crypt implements the FreeBSD "$1$" password hash (Poul-Henning Kamp's
// md5crypt), returning the full "$1$salt$digest" string for comparison.
func md5Crypt(password, salt string) (string, error) {
	if len(salt) > 8 {
		salt = salt[:8]
	}
	p := []byte(password)
	s := []byte(salt)

	hb := md5.New()
	hb.Write(p)
	hb.Write(s)
	hb.Write(p)
	final := hb.Sum(nil)

	ha := md5.New()
	ha.Write(p)
	ha.Write([]byte("$1$"))
	ha.Write(s)

	for pl := len(p); pl > 0; pl -= 16 {
		if pl > 16 {
			ha.Write(final)
		} else {
			ha.Write(final[:pl])
		}
	}

	for i := len(p); i != 0; i >>= 1 {
		if i&1 != 0 {
			ha.Write([]byte{0})
		} else {
			ha.Write(p[:1])
		}
	}

	result := ha.Sum(nil)

	for i := 0; i < 1000; i++ {
		hc := md5.New()
		if i&1 != 0 {
			hc.Write(p)
		} else {
			hc.Write(result)
		}
		if i%3 != 0 {
			hc.Write(s)
		}
		if i%7 != 0 {
			hc.Write(p)
		}
		if i&1 != 0 {
			hc.Write(result)
		} else {
			hc.Write(p)
		}
		result = hc.Sum(nil)
	}

	out := "$1$" + salt + "$" +
		b64From24bit(result[0], result[6], result[12], 4) +
		b64From24bit(result[1], result[7], result[13], 4) +
		b64From24bit(result[2], result[8], result[14], 4) +
		b64From24bit(result[3], result[9], result[15], 4) +
		b64From24bit(result[4], result[10], result[5], 4) +
		b64From24bit(0, 0, result[11], 2)

	return out, nil
}
