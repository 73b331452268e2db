package twitch_auth

// redirectPage forwards the URL fragment parameters to __SUCCESS_URL__ as a
// query string, since implicit-flow tokens arrive in the fragment.
const redirectPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Twitch Indicator</title>
</head>
<body>
<p>Completing authorization&hellip;</p>
<script>
window.location.replace("__SUCCESS_URL__?" + window.location.hash.substring(1));
</script>
</body>
</html>
`

const successPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Twitch Indicator</title>
</head>
<body>
<h1>Authorization successful</h1>
<p>You can close this window and return to Twitch Indicator.</p>
</body>
</html>
`

const failurePage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Twitch Indicator</title>
</head>
<body>
<h1>Authorization failed</h1>
<p>The authorization response was invalid. Close this window and try again.</p>
</body>
</html>
`
