package server

const pageTemplates = `
{{define "pay.html"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Redirecting to Qpay</title></head>
<body onload="document.forms['qpay_payment_form'].submit()">
<p>Thank you for your order, please wait while we redirect you to Qpay to make payment.</p>
<form id="qpay_payment_form" name="qpay_payment_form" action="{{.GatewayURL}}" method="post">
{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{end}}<noscript><button type="submit">Pay via Qpay</button></noscript>
</form>
</body>
</html>{{end}}

{{define "redirect.html"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><meta http-equiv="refresh" content="0;url={{.URL}}"><title>{{.Message}}</title></head>
<body><p>{{.Message}}</p><p><a href="{{.URL}}">Continue</a></p></body>
</html>{{end}}

{{define "error.html"}}<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Payment unavailable</title></head>
<body><p>{{.Message}}</p></body>
</html>{{end}}
`

type payPage struct {
	GatewayURL string
	Fields     []payField
}

type payField struct {
	Name  string
	Value string
}

type redirectPage struct {
	URL     string
	Message string
}

type errorPage struct {
	Message string
}
