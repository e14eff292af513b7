package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowTokenGuide explains where to find a personal API token and the workspace id
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "CLICKUP API TOKEN GUIDE")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 1: Create a personal API token")
	fmt.Fprintln(w, "   - Open ClickUp and click your avatar in the lower-left corner")
	fmt.Fprintln(w, "   - Go to Settings > Apps")
	fmt.Fprintln(w, "   - Under 'API Token' click Generate (or Copy if you already have one)")
	fmt.Fprintln(w, "   - Personal tokens start with 'pk_'")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 2: Find your workspace id")
	fmt.Fprintln(w, "   - Run 'cufetch teams' once the token is saved, or")
	fmt.Fprintln(w, "   - Read it from any ClickUp URL: https://app.clickup.com/<workspace id>/...")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STEP 3: Save it")
	fmt.Fprintln(w, "   cufetch auth login            (stored in the keyring or an encrypted file)")
	fmt.Fprintln(w, "   export CLICKUP_TOKEN=pk_...   (or put it in a .env file)")
	fmt.Fprintln(w, "   export TEAM_ID=1234567")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "SECURITY WARNING:")
	fmt.Fprintln(w, "   The token has the same access to your workspaces as you do.")
	fmt.Fprintln(w, "   Never share it or commit it to a repository.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
}

// ShowQuickTokenGuide prints a one-line reminder
func ShowQuickTokenGuide(w io.Writer) {
	fmt.Fprintln(w, "Token: ClickUp > Settings > Apps > API Token (starts with pk_). Type 'help' for details.")
}
