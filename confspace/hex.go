// Copyright 2021 the System Transparency Authors. All rights reserved
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package confspace

const hexDigits = "0123456789ABCDEF"

// hexString formats value as "0x" followed by exactly 2*width upper
// case hex digits, zero padded. Digits beyond the requested width are
// dropped; callers mask values to the field width beforehand.
func hexString(value uint32, width uint) string {
	buf := make([]byte, 2+2*width)
	buf[0] = '0'
	buf[1] = 'x'

	for i := len(buf) - 1; i >= 2; i-- {
		buf[i] = hexDigits[value&0xF]
		value >>= 4
	}

	return string(buf)
}
