package record

// Clean writes s into the fixed-width field dst. The value is truncated to
// len(dst)-1 bytes and cut at the first NUL; bytes below 0x20 and the bytes
// '%' and '\' are replaced with a space. The remainder of dst is zeroed, so
// after every call the field is exactly its declared width and terminated.
func Clean(dst []byte, s string) {
	n := len(dst) - 1
	if len(s) < n {
		n = len(s)
	}
	i := 0
	for ; i < n; i++ {
		b := s[i]
		if b == 0 {
			break
		}
		if b < 0x20 || b == '%' || b == '\\' {
			b = ' '
		}
		dst[i] = b
	}
	for ; i < len(dst); i++ {
		dst[i] = 0
	}
}

// decode returns the text stored in a fixed-width field, up to its
// terminator.
func decode(src []byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src)
}
