package mysql

import "strings"

// maxRawResponse bounds the stored raw completion; the full text lives in the archive.
const maxRawResponse = 64 << 10

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
    if strings.TrimSpace(s) == "" {
        return "-"
    }
    return s
}

func truncateRaw(s string) string {
    if len(s) <= maxRawResponse {
        return s
    }
    return strings.ToValidUTF8(s[:maxRawResponse], "")
}
