package view

const tmplPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}}</title>
<style>
*{box-sizing:border-box;margin:0;padding:0}
body{font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,sans-serif;background:#0f172a;color:#e2e8f0;line-height:1.5}
.hdr{background:linear-gradient(135deg,#1e3a8a 0%,#7c2d12 100%);padding:14px 20px;display:flex;align-items:center;justify-content:space-between;gap:12px;flex-wrap:wrap}
.hdr h1{font-size:18px;font-weight:600}
.hdr-right{display:flex;align-items:center;gap:8px;font-size:13px}
.chip{display:inline-flex;align-items:center;gap:6px;padding:3px 10px;border-radius:20px;background:rgba(255,255,255,.15)}
.content{max-width:1200px;margin:0 auto;padding:20px;display:grid;grid-template-columns:340px 1fr;gap:20px}
.mode-kiosk .content{grid-template-columns:1fr}
.panel{background:#111827;border:1px solid #1f2937;border-radius:8px;padding:16px;margin-bottom:16px}
.panel h2{font-size:14px;margin-bottom:10px;color:#94a3b8;text-transform:uppercase;letter-spacing:.05em}
.form-group{margin-bottom:10px}
.form-group label{display:block;font-size:12px;color:#94a3b8;margin-bottom:3px}
.form-group input,.form-group select,.form-group textarea{width:100%;padding:7px 10px;border-radius:6px;border:1px solid #334155;background:#0f172a;color:#e2e8f0}
.seg{display:flex;gap:6px}
.seg label{flex:1;text-align:center;padding:6px;border:1px solid #334155;border-radius:6px;cursor:pointer;font-size:13px;color:#e2e8f0}
.btn{display:inline-flex;align-items:center;gap:6px;padding:7px 14px;border-radius:6px;border:none;cursor:pointer;font-size:13px;font-weight:500;text-decoration:none}
.btn-primary{background:#2563eb;color:#fff}
.btn-secondary{background:#334155;color:#e2e8f0}
.kpis{display:flex;gap:12px;margin-bottom:16px}
.kpi{flex:1;background:#111827;border:1px solid #1f2937;border-radius:8px;padding:12px 16px}
.kpi .val{font-size:28px;font-weight:700}
.kpi .lbl{font-size:12px;color:#94a3b8}
.kpi.over .val{color:#f87171}
.cards{display:grid;grid-template-columns:repeat(auto-fill,minmax(300px,1fr));gap:12px;margin-bottom:16px}
.card{background:#111827;border:1px solid #1f2937;border-left:4px solid #38bdf8;border-radius:8px;padding:14px}
.card.height{border-left-color:#fbbf24}
.card.overdue{border-color:#ef4444;box-shadow:0 0 0 1px #ef4444}
.card-top{display:flex;justify-content:space-between;align-items:flex-start;gap:8px;margin-bottom:8px}
.badges{display:flex;gap:6px;flex-wrap:wrap}
.badge{display:inline-flex;align-items:center;gap:4px;padding:2px 8px;border-radius:20px;font-size:11px;font-weight:600;background:#1f2937}
.badge.confined{background:#0c4a6e;color:#bae6fd}
.badge.height{background:#78350f;color:#fde68a}
.badge.overdue{background:#7f1d1d;color:#fecaca}
.card h3{font-size:16px;margin-bottom:6px}
.meta,.kv{font-size:13px;color:#cbd5e1}
.kv{display:flex;justify-content:space-between;margin-top:8px}
.close{background:#7f1d1d;color:#fff;border:none;border-radius:6px;padding:4px 10px;cursor:pointer;font-size:12px}
.empty{text-align:center;padding:30px;color:#64748b}
table{width:100%;border-collapse:collapse;font-size:13px}
th,td{padding:6px 10px;border-bottom:1px solid #1f2937;text-align:left}
.count{font-weight:700}
.count.zero{color:#475569;font-weight:400}
.toast-area{position:fixed;top:64px;right:20px;display:flex;flex-direction:column;gap:8px;z-index:200}
.toast{padding:10px 16px;border-radius:6px;background:#1e293b;border:1px solid #334155;font-size:13px;box-shadow:0 4px 12px rgba(0,0,0,.3)}
.modal-overlay{position:fixed;inset:0;background:rgba(0,0,0,.6);display:flex;align-items:center;justify-content:center;z-index:150}
.modal{background:#111827;border:1px solid #334155;border-radius:8px;padding:24px;max-width:380px;width:90%}
.modal h3{margin-bottom:8px}
.modal .hint{color:#94a3b8;font-size:13px;margin-bottom:12px}
.modal .err{color:#f87171;font-size:13px;margin-bottom:8px}
.updated{font-size:12px;color:#cbd5e1}
</style>
</head>
<body class="{{if .Kiosk}}mode-kiosk{{else}}mode-operator{{end}}">
<div class="hdr">
  <h1>{{.Title}}</h1>
  <div class="hdr-right">
    <span class="updated">Updated <span id="lastUpdated">{{.Board.UpdatedLabel}}</span></span>
    {{if not .Kiosk}}
      {{if .Session}}
        <span class="chip" id="loginChip">{{sessionLabel .Session}}</span>
        <form method="post" action="/logout"><button class="btn btn-secondary" type="submit">Log out</button></form>
      {{else}}
        <a class="btn btn-primary" href="/login">Log in</a>
      {{end}}
    {{end}}
  </div>
</div>

<div class="content">
  {{if not .Kiosk}}
  <div>
    <div class="panel">
      <h2>Open job</h2>
      <form id="openForm" method="post" action="/actions/open">
        <div class="form-group">
          <div class="seg">
            {{range .RiskOptions}}
            <label><input type="radio" name="riskType" value="{{.Value}}"{{if .Checked}} checked{{end}}> {{.Label}}</label>
            {{end}}
          </div>
        </div>
        <div class="form-group">
          <label for="department">Department</label>
          <select id="department" name="department">
            <option value="">-- select --</option>
            {{$dept := .Draft.Department}}
            {{range .Departments}}<option value="{{.}}"{{if eq . $dept}} selected{{end}}>{{.}}</option>{{end}}
          </select>
        </div>
        <div class="form-group">
          <label for="workPoint">Work point</label>
          <input id="workPoint" name="point" value="{{.Draft.Point}}">
        </div>
        <div class="form-group">
          <label for="control">Control measure</label>
          <input id="control" name="control" value="{{.Draft.Control}}">
        </div>
        <div class="form-group">
          <label for="requester">Opened by</label>
          <input id="requester" value="{{if .Session}}{{.Session.User}}{{end}}" disabled>
        </div>
        <div class="form-group">
          <label for="details">Details</label>
          <textarea id="details" name="details" rows="2">{{.Draft.Details}}</textarea>
        </div>
        <div class="form-group">
          <label for="startTime">Start time</label>
          <input id="startTime" name="startTime" type="time" value="{{.Draft.StartTime}}">
        </div>
        <button class="btn btn-primary" type="submit">Open job</button>
        <button class="btn btn-secondary" type="submit" formaction="/actions/clear">Clear</button>
      </form>
    </div>
    <div class="panel">
      <h2>Overdue threshold</h2>
      <form method="post" action="/actions/threshold">
        <div class="form-group">
          <label for="overdueMinutes">Minutes</label>
          <input id="overdueMinutes" name="overdueMinutes" type="number" min="1" max="9999" value="{{.Board.OverdueMinutes}}">
        </div>
        <button class="btn btn-secondary" type="submit">Save</button>
      </form>
    </div>
  </div>
  {{end}}
  <div id="board">{{template "board" .Board}}</div>
</div>

<div class="toast-area" id="toast">{{range .Notices}}<div class="toast show">{{.}}</div>{{end}}</div>

{{if and (not .Kiosk) .Prompt}}{{template "login" .}}{{end}}

<script>
(function(){
  var board = document.getElementById('board');
  var toasts = document.getElementById('toast');
  var updated = document.getElementById('lastUpdated');
  function dropLater(el){ setTimeout(function(){ el.remove(); }, 1600); }
  Array.prototype.forEach.call(toasts.children, dropLater);
  function connect(){
    var proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(proto + location.host + '/ws{{if .Kiosk}}?kiosk=1{{end}}');
    ws.onmessage = function(ev){
      var msg = JSON.parse(ev.data);
      if(msg.kind === 'board'){
        board.innerHTML = msg.html;
        if(msg.updated){ updated.textContent = msg.updated; }
      }else if(msg.kind === 'toast'){
        toasts.insertAdjacentHTML('beforeend', msg.html);
        dropLater(toasts.lastElementChild);
      }
    };
    ws.onclose = function(){ setTimeout(connect, 2000); };
  }
  connect();
})();
</script>
</body>
</html>`

const tmplBoard = `<div class="kpis">
  <div class="kpi"><div class="val" id="kpiOpen">{{.KPIs.Open}}</div><div class="lbl">Open jobs</div></div>
  <div class="kpi over"><div class="val" id="kpiOver">{{.KPIs.Overdue}}</div><div class="lbl">Overdue (&ge; {{.OverdueMinutes}} min)</div></div>
</div>
{{if .Empty}}<div class="empty" id="jobsEmpty">No open jobs</div>{{end}}
<div class="cards" id="jobsList">
{{range .Cards}}
  <div class="card {{.RiskClass}}{{if .Overdue}} overdue{{end}}" data-id="{{.ID}}">
    <div class="card-top">
      <div class="badges">
        <span class="badge {{.RiskClass}}">{{.RiskLabel}}</span>
        <span class="badge dept">Department: <b>{{.Department}}</b></span>
        {{if .Overdue}}<span class="badge overdue">Overdue</span>{{end}}
      </div>
      {{if .CanClose}}
      <form method="post" action="/actions/close">
        <input type="hidden" name="id" value="{{.ID}}">
        <button type="submit" class="close">Close job</button>
      </form>
      {{end}}
    </div>
    <h3>{{.Point}}</h3>
    <div class="meta">
      <div>Control: <b>{{.Control}}</b></div>
      <div>Opened by: <b>{{.Requester}}</b></div>
      {{if .Details}}<div>Details: <b>{{.Details}}</b></div>{{end}}
    </div>
    <div class="kv">
      <div>Start: <b>{{.StartTime}}</b></div>
      <div>Elapsed: <b class="elapsed" data-id="{{.ID}}">{{.Elapsed}}</b></div>
    </div>
  </div>
{{end}}
</div>
<div class="panel">
  <h2>Summary by department</h2>
  <table>
    <thead><tr><th>Department</th><th>Confined space</th><th>At height</th></tr></thead>
    <tbody id="summaryBody">
    {{range .Summary}}
      <tr>
        <td>{{.Department}}</td>
        <td><span class="count{{if .ConfinedZero}} zero{{end}}">{{.Confined}}</span></td>
        <td><span class="count{{if .HeightZero}} zero{{end}}">{{.Height}}</span></td>
      </tr>
    {{end}}
    </tbody>
  </table>
</div>`

const tmplLogin = `<div class="modal-overlay" id="loginModal">
  <div class="modal">
    <h3>Log in</h3>
    <div class="hint" id="loginHint">{{.Prompt.Hint}}</div>
    {{if .Prompt.Error}}<div class="err" id="loginErr">{{.Prompt.Error}}</div>{{end}}
    <div class="seg form-group">
      <a class="btn {{if isAdminMode .Prompt}}btn-secondary{{else}}btn-primary{{end}}" href="/login?mode=user">User</a>
      <a class="btn {{if isAdminMode .Prompt}}btn-primary{{else}}btn-secondary{{end}}" href="/login?mode=admin">Admin</a>
    </div>
    <form method="post" action="/login">
      {{if isAdminMode .Prompt}}
      <input type="hidden" name="mode" value="admin">
      <div class="form-group" id="adminUserWrap">
        <label for="loginAdminUser">Admin name</label>
        <input id="loginAdminUser" name="adminName" value="{{.Prompt.AdminName}}" autocomplete="username">
      </div>
      {{else}}
      <input type="hidden" name="mode" value="user">
      <div class="form-group">
        <label for="loginUser">Name</label>
        <select id="loginUser" name="user">
          <option value="">-- select --</option>
          {{range .Users}}<option value="{{.}}">{{.}}</option>{{end}}
        </select>
      </div>
      {{end}}
      <div class="form-group">
        <label for="loginPin">PIN</label>
        <input id="loginPin" name="pin" type="password" inputmode="numeric" maxlength="6" autocomplete="current-password" autofocus>
      </div>
      <button class="btn btn-primary" type="submit" id="loginBtn">Log in</button>
      <button class="btn btn-secondary" type="submit" formaction="/login/cancel" id="loginCancel">Cancel</button>
    </form>
  </div>
</div>`
