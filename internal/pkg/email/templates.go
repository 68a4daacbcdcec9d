package email

// Email templates in HTML format

// BaseTemplate is the base layout for all emails
const BaseTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background-color: #0f0f0f;
            color: #ffffff;
        }
        .container {
            max-width: 600px;
            margin: 0 auto;
            padding: 40px 20px;
        }
        .card {
            background: #1a1a1a;
            border-radius: 12px;
            padding: 32px;
            border: 1px solid #2a2a2a;
        }
        .logo {
            text-align: center;
            margin-bottom: 24px;
        }
        .logo h1 {
            font-size: 28px;
            background: linear-gradient(135deg, #f59e0b 0%, #ef4444 100%);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
            margin: 0;
        }
        h2 {
            color: #ffffff;
            font-size: 24px;
            margin: 0 0 16px;
        }
        p {
            color: #888888;
            font-size: 16px;
            line-height: 1.6;
            margin: 0 0 16px;
        }
        .btn {
            display: inline-block;
            background: linear-gradient(135deg, #f59e0b 0%, #ef4444 100%);
            color: #ffffff !important;
            text-decoration: none;
            padding: 14px 28px;
            border-radius: 8px;
            font-weight: 600;
        }
        .highlight {
            color: #f59e0b;
            font-weight: 600;
        }
        .footer {
            text-align: center;
            color: #555555;
            font-size: 13px;
            margin-top: 24px;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="card">
            <div class="logo"><h1>Lumen</h1></div>
            {{.Content}}
        </div>
        <div class="footer">
            <p>You received this email because you have a Lumen account.</p>
        </div>
    </div>
</body>
</html>
`

// WelcomeTemplate greets a new user
const WelcomeTemplate = `
<h2>Welcome to Lumen, {{.Name}}!</h2>
<p>Your account is ready. You start with <span class="highlight">{{.Credits}} free credits</span> — enough to try your first few generations.</p>
<p><a class="btn" href="{{.URL}}">Start creating</a></p>
`

// PurchaseReceiptTemplate confirms a credit pack purchase
const PurchaseReceiptTemplate = `
<h2>Thanks for your purchase</h2>
<p>We added <span class="highlight">{{.Credits}} credits</span> to your account ({{.PackName}}).</p>
<p>Amount charged: {{.Amount}} {{.Currency}}.</p>
{{if .ExpiresInDays}}<p>These credits expire in {{.ExpiresInDays}} days.</p>{{end}}
<p><a class="btn" href="{{.URL}}">View your balance</a></p>
`

// LowBalanceTemplate warns when spendable credits run low
const LowBalanceTemplate = `
<h2>You're running low on credits</h2>
<p>Your balance is down to <span class="highlight">{{.Balance}} credits</span>. Top up to keep generating without interruption.</p>
<p><a class="btn" href="{{.URL}}">Buy credits</a></p>
`

// GenerationFailedTemplate notifies about a refunded failed job
const GenerationFailedTemplate = `
<h2>Your generation could not be completed</h2>
<p>Something went wrong while processing your request. We refunded <span class="highlight">{{.Credits}} credits</span> to your account.</p>
<p><a class="btn" href="{{.URL}}">Try again</a></p>
`
