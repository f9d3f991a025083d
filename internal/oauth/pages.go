package oauth

import (
	"fmt"
	"html"
)

const pageShell = `<!DOCTYPE html>
<html lang="fr">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>StarTrad FR</title>
  <style>
    body { min-height: 100vh; margin: 0; display: flex; align-items: center; justify-content: center;
      background: #0a0a0f; color: #fff; font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; }
    .container { text-align: center; max-width: 600px; padding: 40px; }
    h1 span { color: #06b6d4; }
    h1.error span { color: #f87171; }
    p { color: #94a3b8; font-size: 18px; line-height: 1.7; }
  </style>
</head>
<body>
  <div class="container">%s</div>
  %s
</body>
</html>`

// hashCapturePage posts tokens found in the URL fragment back to /auth/token,
// since browsers never send the fragment to the server.
func hashCapturePage() string {
	body := `<h1>Connexion <span>en cours</span></h1><p id="msg">Finalisation de la connexion...</p>`
	script := `<script>
  (function() {
    var params = new URLSearchParams(window.location.hash.substring(1));
    var token = params.get('access_token');
    var msg = document.getElementById('msg');
    if (!token) {
      msg.textContent = params.get('error_description') || 'Aucun jeton reçu.';
      return;
    }
    fetch('/auth/token', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({
        access_token: token,
        refresh_token: params.get('refresh_token'),
        state: params.get('state')
      })
    }).then(function() {
      window.location.replace('/auth/success');
    }).catch(function() {
      window.location.replace('/auth/error');
    });
  })();
</script>`
	return fmt.Sprintf(pageShell, body, script)
}

func successPage() string {
	body := `<h1>Connexion <span>réussie</span></h1><p>Vous pouvez fermer cette fenêtre et retourner dans l'application.</p>`
	return fmt.Sprintf(pageShell, body, "")
}

func errorPage(reason string) string {
	body := fmt.Sprintf(`<h1 class="error">Connexion <span>échouée</span></h1><p>%s</p>`, html.EscapeString(reason))
	return fmt.Sprintf(pageShell, body, "")
}
