package http

import "html/template"

var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "calendar"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<main class="searchcal{{if .Classes}} {{.Classes}}{{end}}"{{if .CalendarType}} data-calendar-type="{{.CalendarType}}"{{end}}>
{{- range .Warnings}}
<div class="messages messages--warning" role="alert">{{.}}</div>
{{- end}}
{{- range .Notices}}
<div class="messages messages--{{.Level}}">{{.Message}}</div>
{{- end}}
{{- if .Preview}}
<pre class="searchcal-preview">{{.Preview}}</pre>
{{- else if .Calendar}}
<form class="searchcal-calendar" method="get" action="{{.SelectAction}}">
{{.Calendar}}
{{- range .Hidden}}
<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{- end}}
<noscript><button type="submit">Go</button></noscript>
</form>
{{- end}}
</main>
</body>
</html>
{{end}}

{{define "day"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<main class="searchcal-day">
<h2>{{.Title}}</h2>
{{- range .Notices}}
<div class="messages messages--{{.Level}}">{{.Message}}</div>
{{- end}}
{{- if .Rows}}
<ul>
{{- range .Rows}}
<li>{{if .URL}}<a href="{{.URL}}">{{.Title}}</a>{{else}}{{.Title}}{{end}}</li>
{{- end}}
</ul>
{{- else}}
<p>No results for this day.</p>
{{- end}}
{{- if .Back}}
<p><a class="searchcal-back" href="{{.Back}}">Back to calendar</a></p>
{{- end}}
</main>
</body>
</html>
{{end}}
`))
