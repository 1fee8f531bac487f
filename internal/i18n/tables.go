package i18n

// tables holds the embedded string tables keyed by language code
var tables = map[string]map[string]string{
	"en": {
		"start_unknown":        "Hello! To get VPN access, please send your full name to register.",
		"start_pending":        "Your registration is still pending review. We will notify you once it is approved.",
		"start_approved":       "Welcome back, {name}! Use /request_vpn to open a VPN session.",
		"start_rejected":       "Your registration was rejected. Reason: {reason}",
		"start_inactive":       "Your account is deactivated. Contact the administrator.",
		"help":                 "Commands:\n/request_vpn - request VPN access\n/my_sessions - list your sessions\n/disable_vpn - disable VPN access\n/status - account status\n/language - change language\n/cancel - cancel current action",
		"status":               "Name: {name}\nStatus: {status}\nActive sessions: {sessions}",
		"cancel_ok":            "Cancelled.",
		"cancel_nothing":       "Nothing to cancel.",
		"registration_sent":    "Thanks, {name}! Your registration has been submitted for review.",
		"registration_dup":     "You already have a pending registration request.",
		"not_registered":       "You are not registered yet. Send /start to begin.",
		"not_approved":         "Your account is not approved for VPN access.",
		"request_no_accounts":  "No VPN accounts are assigned to you. Contact the administrator.",
		"request_pick_account": "Pick the account to connect with:",
		"request_created":      "VPN account {username} is enabled. Connect within the next minutes; you may be asked to confirm the session.",
		"request_exists":       "There is already an open session for {username}. Use /my_sessions to manage it.",
		"request_failed":       "Could not enable VPN access right now. Try again later.",
		"sessions_none":        "You have no sessions.",
		"sessions_header":      "Your sessions:",
		"session_line":         "{username}: {status}, expires {expires_at}",
		"disable_prompt":       "Disable VPN access: disconnect everything now, or only revoke the accounts?",
		"disable_all":          "Disconnect all",
		"disable_revoke":       "Revoke only",
		"disable_done":         "VPN access disabled.",
		"confirm_yes":          "It's me",
		"confirm_no":           "Not me",
		"confirm_ok":           "Session confirmed. Enjoy!",
		"confirm_denied":       "Session terminated. If this was not you, consider changing your credentials.",
		"confirm_gone":         "This session is no longer awaiting confirmation.",
		"disconnect_btn":       "Disconnect",
		"disconnect_ok":        "Session disconnected.",
		"language_prompt":      "Choose a language:",
		"language_set":         "Language updated.",
		"admin_new_request":    "New registration request from {name} (@{username}).",
		"unknown_command":      "Unknown command. Send /help for the list of commands.",
	},
	"ru": {
		"start_unknown":        "Здравствуйте! Для получения доступа к VPN отправьте своё полное имя для регистрации.",
		"start_pending":        "Ваша заявка ещё на рассмотрении. Мы сообщим, когда её одобрят.",
		"start_approved":       "С возвращением, {name}! Используйте /request_vpn, чтобы открыть VPN-сессию.",
		"start_rejected":       "Ваша заявка отклонена. Причина: {reason}",
		"start_inactive":       "Ваша учётная запись отключена. Обратитесь к администратору.",
		"help":                 "Команды:\n/request_vpn - запросить доступ к VPN\n/my_sessions - список сессий\n/disable_vpn - отключить доступ к VPN\n/status - статус учётной записи\n/language - сменить язык\n/cancel - отменить действие",
		"status":               "Имя: {name}\nСтатус: {status}\nАктивных сессий: {sessions}",
		"cancel_ok":            "Отменено.",
		"cancel_nothing":       "Нечего отменять.",
		"registration_sent":    "Спасибо, {name}! Ваша заявка отправлена на рассмотрение.",
		"registration_dup":     "У вас уже есть заявка на рассмотрении.",
		"not_registered":       "Вы ещё не зарегистрированы. Отправьте /start, чтобы начать.",
		"not_approved":         "Ваша учётная запись не одобрена для доступа к VPN.",
		"request_no_accounts":  "За вами не закреплены VPN-аккаунты. Обратитесь к администратору.",
		"request_pick_account": "Выберите аккаунт для подключения:",
		"request_created":      "VPN-аккаунт {username} включён. Подключитесь в ближайшие минуты; возможно, потребуется подтвердить сессию.",
		"request_exists":       "Для {username} уже есть открытая сессия. Используйте /my_sessions для управления.",
		"request_failed":       "Не удалось включить доступ к VPN. Попробуйте позже.",
		"sessions_none":        "У вас нет сессий.",
		"sessions_header":      "Ваши сессии:",
		"session_line":         "{username}: {status}, истекает {expires_at}",
		"disable_prompt":       "Отключение VPN: разорвать все соединения сейчас или только отозвать аккаунты?",
		"disable_all":          "Разорвать все",
		"disable_revoke":       "Только отозвать",
		"disable_done":         "Доступ к VPN отключён.",
		"confirm_yes":          "Это я",
		"confirm_no":           "Не я",
		"confirm_ok":           "Сессия подтверждена!",
		"confirm_denied":       "Сессия разорвана. Если это были не вы, смените учётные данные.",
		"confirm_gone":         "Эта сессия уже не ожидает подтверждения.",
		"disconnect_btn":       "Отключить",
		"disconnect_ok":        "Сессия отключена.",
		"language_prompt":      "Выберите язык:",
		"language_set":         "Язык изменён.",
		"admin_new_request":    "Новая заявка на регистрацию от {name} (@{username}).",
		"unknown_command":      "Неизвестная команда. Отправьте /help для списка команд.",
	},
}
