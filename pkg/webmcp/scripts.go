package webmcp

// discoverToolsJS scans a page for every supported capability surface.
// The four methods are concatenated, not short-circuited: a page may mix
// a native modelContext API with declarative markup.
const discoverToolsJS = `
async () => {
    const tools = [];

    // Method 1: native navigator.modelContext API
    if (typeof navigator !== 'undefined' && navigator.modelContext) {
        try {
            const ctx = navigator.modelContext;

            if (ctx.tools && Array.isArray(ctx.tools)) {
                for (const tool of ctx.tools) {
                    tools.push({
                        name: tool.name || 'unnamed',
                        description: tool.description || '',
                        parameters: tool.inputSchema || tool.parameters || {},
                        source: 'navigator.modelContext'
                    });
                }
            }

            // Some implementations expose a textContent() accessor instead
            if (ctx.textContent && typeof ctx.textContent === 'function') {
                try {
                    const content = await ctx.textContent();
                    if (content) {
                        tools.push({
                            name: '__page_content',
                            description: 'Page text content exposed via the model context API',
                            parameters: {},
                            source: 'navigator.modelContext.textContent',
                            content: typeof content === 'string' ? content.substring(0, 2000) : JSON.stringify(content).substring(0, 2000)
                        });
                    }
                } catch(e) {}
            }
        } catch(e) {
            console.error('tool discovery error:', e);
        }
    }

    // Method 2: declarative meta tags
    const mcpMeta = document.querySelectorAll('meta[name="mcp-tool"], meta[name="mcp-server"]');
    for (const meta of mcpMeta) {
        try {
            const content = JSON.parse(meta.getAttribute('content') || '{}');
            if (content.name) {
                tools.push({
                    name: content.name,
                    description: content.description || '',
                    parameters: content.inputSchema || content.parameters || {},
                    source: 'meta-tag'
                });
            }
        } catch(e) {}
    }

    // Method 3: data-mcp-tool attributes (polyfill pattern)
    const mcpElements = document.querySelectorAll('[data-mcp-tool]');
    for (const el of mcpElements) {
        const toolName = el.getAttribute('data-mcp-tool');
        const toolDesc = el.getAttribute('data-mcp-description') || '';
        let toolParams = {};
        try {
            toolParams = JSON.parse(el.getAttribute('data-mcp-params') || '{}');
        } catch(e) {}

        tools.push({
            name: toolName,
            description: toolDesc,
            parameters: toolParams,
            source: 'data-attribute'
        });
    }

    // Method 4: JSON-LD potentialAction entries
    const jsonLdScripts = document.querySelectorAll('script[type="application/ld+json"]');
    for (const script of jsonLdScripts) {
        try {
            const data = JSON.parse(script.textContent);
            if (data.potentialAction) {
                const actions = Array.isArray(data.potentialAction) ? data.potentialAction : [data.potentialAction];
                for (const action of actions) {
                    if (action['@type'] && action.target) {
                        tools.push({
                            name: action['@type'],
                            description: action.description || action.name || action['@type'],
                            parameters: action.target || {},
                            source: 'json-ld'
                        });
                    }
                }
            }
        } catch(e) {}
    }

    return {
        hasTools: tools.length > 0,
        toolCount: tools.length,
        tools: tools,
        url: window.location.href,
        title: document.title
    };
}
`

// executeToolJS runs one named tool. The native handler is preferred; the
// data-attribute fallback fills forms or clicks elements. The script never
// throws: failures come back as { success: false, error }.
const executeToolJS = `
async ({ toolName, args }) => {
    // Try the native handler first
    if (typeof navigator !== 'undefined' && navigator.modelContext && navigator.modelContext.tools) {
        const tool = navigator.modelContext.tools.find(t => t.name === toolName);
        if (tool && typeof tool.handler === 'function') {
            try {
                const result = await tool.handler(args);
                return { success: true, result: result, source: 'navigator.modelContext' };
            } catch(e) {
                return { success: false, error: e.message, source: 'navigator.modelContext' };
            }
        }
    }

    // Fall back to annotated page elements
    const el = document.querySelector('[data-mcp-tool="' + toolName + '"]');
    if (el) {
        if (el.tagName === 'FORM') {
            for (const [key, value] of Object.entries(args)) {
                const input = el.querySelector('[name="' + key + '"]');
                if (input) {
                    input.value = value;
                    input.dispatchEvent(new Event('input', { bubbles: true }));
                    input.dispatchEvent(new Event('change', { bubbles: true }));
                }
            }
            el.submit();
            return { success: true, result: 'Form submitted', source: 'data-attribute' };
        }
        if (el.tagName === 'BUTTON' || el.tagName === 'A') {
            el.click();
            return { success: true, result: 'Element clicked', source: 'data-attribute' };
        }
    }

    return { success: false, error: 'Tool "' + toolName + '" not found or not executable on this page' };
}
`
