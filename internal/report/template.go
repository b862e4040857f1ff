package report

// pageHTML is embedded rather than loaded from disk: the renderer runs on a
// bare CI runner with no installed template tree.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Space Status</title>
    <style>
        body {
            font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif;
            margin: 0;
            padding: 20px;
            background-color: #f5f5f5;
        }
        .container {
            max-width: 900px;
            margin: 0 auto;
            background: white;
            border-radius: 10px;
            box-shadow: 0 2px 10px rgba(0,0,0,0.1);
            padding: 30px;
        }
        h1 { text-align: center; color: #333; }
        .stats { display: flex; justify-content: space-around; margin-bottom: 30px; flex-wrap: wrap; }
        .stat-card {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 20px;
            border-radius: 10px;
            text-align: center;
            min-width: 150px;
            margin: 5px;
        }
        .stat-number { font-size: 2em; font-weight: bold; display: block; }
        .log-entry {
            margin-bottom: 15px;
            border: 1px solid #e0e0e0;
            padding: 20px;
            border-radius: 10px;
            background: #fafafa;
        }
        .timestamp { font-weight: bold; color: #555; margin-bottom: 10px; display: block; }
        .space-result {
            display: inline-block;
            margin: 5px 10px 5px 0;
            padding: 8px 12px;
            border-radius: 20px;
            font-size: 0.9em;
        }
        .success { background-color: #d4edda; color: #155724; border: 1px solid #c3e6cb; }
        .failure { background-color: #f8d7da; color: #721c24; border: 1px solid #f5c6cb; }
        .footer {
            margin-top: 40px;
            text-align: center;
            color: #666;
            font-size: 14px;
            padding-top: 20px;
            border-top: 1px solid #eee;
        }
        .footer a { color: #007BFF; text-decoration: none; }
        .empty { text-align: center; padding: 50px; color: #666; }
    </style>
</head>
<body>
    <div class="container">
        <h1>🚀 {{if .Owner}}{{.Owner}} &mdash; {{end}}Space Status</h1>

        <div class="stats">
            <div class="stat-card">
                <span class="stat-number">{{.TotalChecks}}</span>
                <div>Total checks</div>
            </div>
            <div class="stat-card">
                <span class="stat-number">{{.SuccessRate}}</span>
                <div>Success rate</div>
            </div>
            <div class="stat-card">
                <span class="stat-number">{{.LastRun}}</span>
                <div>Last run</div>
            </div>
        </div>

{{if .Runs}}{{range .Runs}}        <div class="log-entry">
            <span class="timestamp">🕒 {{.Timestamp}} &mdash; {{.SuccessRate}}</span>
{{range .Checks}}            <div class="space-result {{if .Ok}}success{{else}}failure{{end}}">{{if .Ok}}✅{{else}}❌{{end}} {{.Name}}: {{.Label}}</div>
{{end}}        </div>
{{end}}{{else}}        <div class="empty">📋 No checks recorded yet</div>
{{end}}
        <div class="footer">
            Generated at {{.GeneratedAt}} UTC
{{if .Repository}}            &middot; scheduled by <a href="https://github.com/{{.Repository}}">{{.Repository}}</a>
{{end}}{{if .SchedulerState}}            &middot; last scheduler run: {{.SchedulerState}}
{{end}}        </div>
    </div>
</body>
</html>
`
