package reload

import (
	"fmt"
	"net/url"
	"strings"
)

// Payload is the structured proxy-mode reload request for one addon.
// Construction is kept free of the transmission mechanism so it can be
// tested without spawning anything.
type Payload struct {
	ID    string
	Name  string
	Stamp string
}

// NewPayload builds a reload payload for an installed plugin, stamped with
// the given version/build identifier.
func NewPayload(id, name, stamp string) Payload {
	if name == "" {
		name = id
	}
	return Payload{ID: id, Name: name, Stamp: stamp}
}

// Script renders the executable reload script: invalidate the startup
// cache, reload the named addon through the extension manager, and surface
// a transient confirmation notification.
func (p Payload) Script() string {
	var b strings.Builder
	b.WriteString("(function(){")
	b.WriteString(`Components.utils.import("resource://gre/modules/Services.jsm");`)
	b.WriteString(`Components.utils.import("resource://gre/modules/AddonManager.jsm");`)
	b.WriteString(`Services.obs.notifyObservers(null,"startupcache-invalidate",null);`)
	fmt.Fprintf(&b, `AddonManager.getAddonByID(%q,function(addon){addon.reload();});`, p.ID)
	fmt.Fprintf(&b, `Services.appShell.hiddenDOMWindow.alert(%q);`,
		fmt.Sprintf("%s reloaded (%s)", p.Name, p.Stamp))
	b.WriteString("})();")
	return b.String()
}

// EncodeURL embeds a script into the custom protocol handle the host
// executes when invoked with it as an argument.
func EncodeURL(script string) string {
	return "javascript:" + url.PathEscape(script)
}
