package infrastructure

import "strings"

// secretFlags are yt-dlp options whose value never reaches the log file
var secretFlags = map[string]bool{
	"--password":       true,
	"--username":       true,
	"--video-password": true,
	"--ap-password":    true,
	"--add-header":     true,
}

const redacted = "<redacted>"

// commandLine renders a yt-dlp invocation for the extractor log header.
// The result is for reading only; exec never goes through a shell.
func commandLine(binary string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(binary))

	hideNext := false
	for _, arg := range args {
		switch {
		case hideNext:
			parts = append(parts, redacted)
			hideNext = false
		case secretFlags[arg]:
			parts = append(parts, arg)
			hideNext = true
		case strings.HasPrefix(arg, "--") && strings.Contains(arg, "=") && secretFlags[arg[:strings.Index(arg, "=")]]:
			parts = append(parts, arg[:strings.Index(arg, "=")+1]+redacted)
		default:
			parts = append(parts, quoteArg(arg))
		}
	}
	return strings.Join(parts, " ")
}

// quoteArg single-quotes s when a POSIX shell would otherwise split or expand it
func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\r'\"$`\\!*?[](){}|;<>&~#%") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
